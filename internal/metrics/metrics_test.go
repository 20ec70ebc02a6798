package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type call struct {
	kind   string // "counter" or "hist"
	name   string
	value  float64
	labels Labels
}

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	flushes int
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"counter", name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{"hist", name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// install swaps in a fake backend for the duration of the test. Tests using
// it must not run in parallel.
func install(t *testing.T) *fakeBackend {
	t.Helper()
	orig := current()
	fb := &fakeBackend{}
	SetBackend(fb)
	t.Cleanup(func() { SetBackend(orig) })
	return fb
}

func TestRecordStep(t *testing.T) {
	fb := install(t)

	RecordStep("groceries", "stage", nil, 2*time.Second)
	RecordStep("groceries", "update", errors.New("deadlock"), 1500*time.Millisecond)

	want := []call{
		{"counter", StepTotal, 1, Labels{"job": "groceries", "step": "stage", "status": "success"}},
		{"hist", StepDuration, 2, Labels{"job": "groceries", "step": "stage", "status": "success"}},
		{"counter", StepTotal, 1, Labels{"job": "groceries", "step": "update", "status": "failure"}},
		{"hist", StepDuration, 1.5, Labels{"job": "groceries", "step": "update", "status": "failure"}},
	}
	if diff := cmp.Diff(want, fb.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordRowAndBatches(t *testing.T) {
	fb := install(t)

	RecordRow("groceries", KindStaged, 3)
	RecordRow("groceries", KindSkippedNullKey, 0) // ignored
	RecordRow("groceries", KindUpdated, 2)
	RecordBatches("groceries", 1)
	RecordBatches("groceries", -1) // ignored

	want := []call{
		{"counter", RecordsTotal, 3, Labels{"job": "groceries", "kind": KindStaged}},
		{"counter", RecordsTotal, 2, Labels{"job": "groceries", "kind": KindUpdated}},
		{"counter", BatchesTotal, 1, Labels{"job": "groceries"}},
	}
	if diff := cmp.Diff(want, fb.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	fb := install(t)

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushes != 1 {
		t.Fatalf("expected 1 flush, got %d", fb.flushes)
	}

	SetBackend(nil)
	if current() != Backend(fb) {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
