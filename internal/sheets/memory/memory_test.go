package memory

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"budgeting/internal/core"
)

func TestSheetRoundTrip(t *testing.T) {
	s := New([]string{"name", "amount"}, []string{"Rent", "1200"})
	recs, err := s.ReadRecords(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]core.RawRecord{{Name: "Rent", Amount: "1200"}}, recs); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	if err := s.WriteItems(context.Background(), []core.LineItem{{Name: "Gym", Value: 40, Tags: []string{"health"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := [][]string{{"name", "amount", "category"}, {"Gym", "40", "health"}}
	if diff := cmp.Diff(want, s.Rows()); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
