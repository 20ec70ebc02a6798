package dataset

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func mustNew(t *testing.T, cols []string, rows ...[]any) *Table {
	t.Helper()
	tbl, err := New(cols, rows)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); !errors.Is(err, ErrNoColumns) {
		t.Fatalf("New(nil) err = %v, want ErrNoColumns", err)
	}
	if _, err := New([]string{"a", "b"}, [][]any{{1}}); !errors.Is(err, ErrRowWidth) {
		t.Fatalf("short row err = %v, want ErrRowWidth", err)
	}

	tbl := mustNew(t, []string{"a"})
	if !tbl.Empty() || tbl.Len() != 0 {
		t.Fatalf("Empty=%v Len=%d, want true 0", tbl.Empty(), tbl.Len())
	}
}

func TestDtypeInference(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	tbl := mustNew(t, []string{"s", "i", "f", "mixed", "b", "t", "null"},
		[]any{"x", int64(1), 1.5, int64(1), true, now, nil},
		[]any{nil, int64(2), int64(2), "two", false, nil, nil},
	)
	want := []string{DtypeObject, DtypeInt64, DtypeFloat64, DtypeObject, DtypeBool, DtypeDatetime, DtypeObject}
	if diff := cmp.Diff(want, tbl.Dtypes()); diff != "" {
		t.Fatalf("Dtypes mismatch (-want +got):\n%s", diff)
	}
	if dt, ok := tbl.Dtype("f"); !ok || dt != DtypeFloat64 {
		t.Fatalf("Dtype(f) = %q, %v", dt, ok)
	}
	if _, ok := tbl.Dtype("nope"); ok {
		t.Fatal("Dtype(nope) found")
	}
}

func TestProjectKeepsRepeatedHeaders(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"id", "price", "item", "price"},
		[]any{"a", 1.0, "Apple", 2.0},
	)
	p := tbl.Project([]string{"price", "id", "missing"})
	if diff := cmp.Diff([]string{"price", "price", "id"}, p.Columns()); diff != "" {
		t.Fatalf("Columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]any{{1.0, 2.0, "a"}}, p.Rows()); diff != "" {
		t.Fatalf("Rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"price"}, p.DuplicateColumns()); diff != "" {
		t.Fatalf("DuplicateColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestDuplicateColumnsOrder(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"z", "a", "z", "a", "z"})
	if diff := cmp.Diff([]string{"z", "a", "z"}, tbl.DuplicateColumns()); diff != "" {
		t.Fatalf("DuplicateColumns mismatch (-want +got):\n%s", diff)
	}
}

func TestDropNulls(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"k1", "k2", "v"},
		[]any{"a", int64(1), nil},
		[]any{nil, int64(2), "x"},
		[]any{"c", math.NaN(), "y"},
		[]any{"d", int64(4), "z"},
	)
	got := tbl.DropNulls([]string{"k1", "k2"})
	want := [][]any{{"a", int64(1), nil}, {"d", int64(4), "z"}}
	if diff := cmp.Diff(want, got.Rows()); diff != "" {
		t.Fatalf("Rows mismatch (-want +got):\n%s", diff)
	}
	if tbl.Len() != 4 {
		t.Fatalf("source table changed: Len=%d", tbl.Len())
	}

	mask := tbl.NullRows([]string{"k1", "k2"})
	if mask.Count() != 2 || !mask.Has(1) || !mask.Has(2) || mask.Has(0) {
		t.Fatalf("NullRows: count=%d has(0,1,2)=%v,%v,%v", mask.Count(), mask.Has(0), mask.Has(1), mask.Has(2))
	}
	if tbl.NullRows([]string{"v"}).Count() != 1 {
		t.Fatal("NullRows(v) should mark one row")
	}
}

func TestHasDuplicateRows(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"shop", "item", "n"},
		[]any{"north", "Apple", int64(1)},
		[]any{"south", "Apple", int64(1)},
		[]any{"north", "Pear", int64(2)},
	)
	if tbl.HasDuplicateRows([]string{"shop", "item"}) {
		t.Fatal("composite key reported duplicate")
	}
	if !tbl.HasDuplicateRows([]string{"item", "n"}) {
		t.Fatal("(Apple, 1) twice not reported")
	}
	if !tbl.HasDuplicateRows([]string{"shop"}) {
		t.Fatal("north twice not reported")
	}

	// Same text, different type: not equal.
	mixed := mustNew(t, []string{"k"}, []any{"1"}, []any{int64(1)})
	if mixed.HasDuplicateRows([]string{"k"}) {
		t.Fatal(`"1" and 1 reported equal`)
	}
	// Numbers compare by value across integer kinds and integral floats.
	numeric := mustNew(t, []string{"k", "v"}, []any{int64(1), int64(5)}, []any{1.0, int64(6)})
	if !numeric.HasDuplicateRows([]string{"k"}) {
		t.Fatal("1 and 1.0 not reported")
	}
	kinds := mustNew(t, []string{"k"}, []any{int32(7)}, []any{uint8(7)})
	if !kinds.HasDuplicateRows([]string{"k"}) {
		t.Fatal("int32(7) and uint8(7) not reported")
	}
	fractional := mustNew(t, []string{"k"}, []any{int64(1)}, []any{1.5})
	if fractional.HasDuplicateRows([]string{"k"}) {
		t.Fatal("1 and 1.5 reported equal")
	}
	// Nulls compare equal.
	nulls := mustNew(t, []string{"k"}, []any{nil}, []any{nil})
	if !nulls.HasDuplicateRows([]string{"k"}) {
		t.Fatal("two nulls not reported")
	}
}

func TestSetAndResetIndex(t *testing.T) {
	t.Parallel()

	tbl := mustNew(t, []string{"item", "id", "price"},
		[]any{"Apple", "ID1", 1.0},
		[]any{"Pear", "ID2", 2.0},
	)
	indexed, err := tbl.SetIndex("id")
	if err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	if diff := cmp.Diff([]string{"item", "price"}, indexed.Columns()); diff != "" {
		t.Fatalf("indexed Columns mismatch (-want +got):\n%s", diff)
	}

	reset := indexed.ResetIndex()
	if diff := cmp.Diff([]string{"id", "item", "price"}, reset.Columns()); diff != "" {
		t.Fatalf("reset Columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"ID2", "Pear", 2.0}, reset.Rows()[1]); diff != "" {
		t.Fatalf("reset row mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{DtypeObject, DtypeObject, DtypeFloat64}, reset.Dtypes()); diff != "" {
		t.Fatalf("reset Dtypes mismatch (-want +got):\n%s", diff)
	}

	// Composite and unnamed labels stay put.
	multi, err := tbl.SetIndex("id", "item")
	if err != nil {
		t.Fatalf("SetIndex multi: %v", err)
	}
	if multi.ResetIndex() != multi {
		t.Fatal("composite label was promoted")
	}
	if tbl.ResetIndex() != tbl {
		t.Fatal("table without label changed")
	}

	if _, err := tbl.SetIndex("nope"); err == nil {
		t.Fatal("SetIndex(nope) succeeded")
	}
	if _, err := mustNew(t, []string{"only"}).SetIndex("only"); !errors.Is(err, ErrNoColumns) {
		t.Fatalf("SetIndex of every column err = %v, want ErrNoColumns", err)
	}
}

func TestIsNull(t *testing.T) {
	t.Parallel()

	for _, v := range []any{nil, math.NaN(), float32(math.NaN())} {
		if !IsNull(v) {
			t.Fatalf("IsNull(%v) = false", v)
		}
	}
	for _, v := range []any{"", 0, 0.0, false} {
		if IsNull(v) {
			t.Fatalf("IsNull(%#v) = true", v)
		}
	}
}
