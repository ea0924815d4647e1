package oracle

import (
	"slices"
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsSortableUUIDv7(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = NewID()
	}
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("NewID() = %q: %v", id, err)
		}
		if u.Version() != 7 {
			t.Errorf("%s is version %d, want 7", id, u.Version())
		}
	}
	if !slices.IsSorted(ids) {
		t.Error("IDs generated in sequence are not in order")
	}
	if len(slices.Compact(slices.Clone(ids))) != len(ids) {
		t.Error("duplicate IDs")
	}
}
