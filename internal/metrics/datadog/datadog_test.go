package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/qpenko/database-importer/internal/metrics"
)

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"step": "update", "job": "groceries", "status": "success"})
	want := []string{"job:groceries", "status:success", "step:update"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("labelsToTags(nil) should be nil")
	}
}

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend without Addr succeeded")
	}
}

func TestBackendSendsDatagrams(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen unavailable: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "dbimport."})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": metrics.KindUpdated})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := "dbimport." + metrics.RecordsTotal + ":3|c"
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 8192)
	var got strings.Builder
	for !strings.Contains(got.String(), want) {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("no %q datagram received (got %q): %v", want, got.String(), err)
		}
		got.Write(buf[:n])
	}
	if !strings.Contains(got.String(), "kind:updated") {
		t.Fatalf("datagrams %q lack kind tag", got.String())
	}
}
