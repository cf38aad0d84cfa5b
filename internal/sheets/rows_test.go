package sheets

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"budgeting/internal/core"
)

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{" Amount ", "NAME", "Category"},
		{"1200", "Rent", "housing"},
		{"", "", ""},
		{"abc", "Books"},
		{"5"},
	}
	got, err := ParseRows(rows)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []core.RawRecord{
		{Name: "Rent", Amount: "1200", Tag: "housing"},
		{Name: "Books", Amount: "abc"},
		{Name: "", Amount: "5"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestFindColumnsMissing(t *testing.T) {
	_, err := FindColumns([]string{"category", "date"})
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected missing column, got %v", err)
	}
}

func TestItemRows(t *testing.T) {
	got := ItemRows([]core.LineItem{{Name: "Coffee", Value: 3.5, Tags: []string{"food", "daily"}}})
	want := [][]string{{"name", "amount", "category"}, {"Coffee", "3.5", "food"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
