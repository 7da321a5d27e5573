package typing

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddIsIdempotent(t *testing.T) {
	tr := New()
	tr.Add("u2")
	tr.Add("u2")
	if got := tr.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if !tr.Contains("u2") {
		t.Error("Contains(u2) = false, want true")
	}
}

func TestRemoveAbsentIsNoOp(t *testing.T) {
	tr := New()
	calls := 0
	tr.OnChange(func([]string) { calls++ })

	tr.Remove("ghost")
	if calls != 0 {
		t.Errorf("OnChange fired %d times for absent remove", calls)
	}
}

func TestSnapshotSorted(t *testing.T) {
	tr := New()
	tr.Add("u5")
	tr.Add("u2")
	tr.Add("u3")
	if diff := cmp.Diff([]string{"u2", "u3", "u5"}, tr.Snapshot()); diff != "" {
		t.Errorf("Snapshot (-want +got):\n%s", diff)
	}
}

func TestOnChange(t *testing.T) {
	tr := New()
	var got [][]string
	tr.OnChange(func(ids []string) { got = append(got, ids) })

	tr.Add("u2")
	tr.Add("u3")
	tr.Add("u3")
	tr.Remove("u2")

	want := [][]string{{"u2"}, {"u2", "u3"}, {"u3"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OnChange calls (-want +got):\n%s", diff)
	}
}

func TestOnChangeCancel(t *testing.T) {
	tr := New()
	var first, second int
	cancel := tr.OnChange(func([]string) { first++ })
	tr.OnChange(func([]string) { second++ })

	tr.Add("u2")
	cancel()
	tr.Remove("u2")
	cancel()

	if first != 1 {
		t.Errorf("cancelled watcher fired %d times, want 1", first)
	}
	if second != 2 {
		t.Errorf("remaining watcher fired %d times, want 2", second)
	}
}

func TestConcurrentAddRemove(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for _, id := range []string{"u1", "u2", "u3", "u5"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				tr.Add(id)
				_ = tr.Contains(id)
				tr.Remove(id)
			}
		}(id)
	}
	wg.Wait()
	if got := tr.Len(); got != 0 {
		t.Errorf("Len() = %d after balanced add/remove, want 0", got)
	}
}
