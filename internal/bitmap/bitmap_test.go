package bitmap

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		n         int
		wantWords int
	}{
		{"zero is empty", 0, 0},
		{"negative is empty", -5, 0},
		{"one", 1, 1},
		{"one word", 64, 1},
		{"spills into second word", 65, 2},
		{"large", 150_000, (150_000 + 63) / 64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bm := New(tt.n)
			if got := len(bm.data); got != tt.wantWords {
				t.Fatalf("New(%d): words=%d, want %d", tt.n, got, tt.wantWords)
			}
		})
	}
}

func TestAddHas(t *testing.T) {
	t.Parallel()

	bm := New(130)
	for _, i := range []int{0, 63, 64, 129} {
		bm.Add(i)
	}
	for i := 0; i < bm.Len(); i++ {
		want := i == 0 || i == 63 || i == 64 || i == 129
		if got := bm.Has(i); got != want {
			t.Fatalf("Has(%d)=%v, want %v", i, got, want)
		}
	}
	if got := bm.Count(); got != 4 {
		t.Fatalf("Count()=%d, want 4", got)
	}
}

func TestOutOfRange(t *testing.T) {
	t.Parallel()

	bm := New(10)
	bm.Add(-1)
	bm.Add(10)
	bm.Add(1000)
	if bm.Count() != 0 {
		t.Fatalf("out of range Add set bits: Count()=%d", bm.Count())
	}
	if bm.Has(-1) || bm.Has(10) {
		t.Fatal("Has reported an out of range position")
	}

	empty := New(0)
	empty.Add(0)
	if empty.Has(0) || empty.Count() != 0 || empty.Len() != 0 {
		t.Fatal("empty bitmap is not empty")
	}
}
