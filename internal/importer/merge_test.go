package importer

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"budgeting/internal/core"

	"github.com/google/go-cmp/cmp"
)

var scope = core.Scope{UserID: "u1", Month: "2025-03", Category: core.Expense}

func names(items []core.LineItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestMergeDuplicateRowsLastWins(t *testing.T) {
	got := Merge(nil, []core.RawRecord{
		{Name: "Rent", Amount: "1200"},
		{Name: "Rent", Amount: "1300"},
	}, scope)
	if len(got) != 1 {
		t.Fatalf("expected one entry, got %v", got)
	}
	if got[0].Name != "Rent" || got[0].Value != 1300 {
		t.Fatalf("unexpected entry %+v", got[0])
	}
	if got[0].UserID != "u1" || got[0].Month != "2025-03" {
		t.Fatalf("entry not stamped with scope: %+v", got[0])
	}
}

func TestMergeBadAmountBecomesZero(t *testing.T) {
	res := Plan(nil, []core.RawRecord{
		{Name: "Coffee", Amount: "3.5"},
		{Name: "Mystery", Amount: "abc"},
		{Name: "Bus", Amount: "2"},
	}, scope)
	if diff := cmp.Diff([]string{"Coffee", "Mystery", "Bus"}, names(res.Items)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if res.Items[1].Value != 0 {
		t.Fatalf("bad row should be 0, got %v", res.Items[1].Value)
	}
	if res.Zeroed != 1 || res.Added != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
}

func TestMergeDropsNamelessRows(t *testing.T) {
	res := Plan(nil, []core.RawRecord{{Name: "", Amount: "1"}, {Name: "   ", Amount: "2"}, {Name: "ok", Amount: "3"}}, scope)
	if len(res.Items) != 1 || res.Dropped != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMergeOrderAndImportWins(t *testing.T) {
	existing := []core.LineItem{
		{ID: "1", Name: "Rent", Value: 1200, Tags: []string{"Utilities"}},
		{ID: "2", Name: "Coffee", Value: 3},
		{ID: "3", Name: "Gym", Value: 40},
	}
	res := Plan(existing, []core.RawRecord{
		{Name: "Groceries", Amount: "80", Tag: "Food"},
		{Name: "Coffee", Amount: "4.5"},
		{Name: "Taxi", Amount: "12"},
	}, scope)

	if diff := cmp.Diff([]string{"Rent", "Coffee", "Gym", "Groceries", "Taxi"}, names(res.Items)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	coffee := res.Items[1]
	if coffee.Value != 4.5 || coffee.ID != "2" {
		t.Fatalf("import should overwrite in place keeping the id, got %+v", coffee)
	}
	if res.Items[3].Tag() != "Food" {
		t.Fatalf("tag column not carried: %+v", res.Items[3])
	}
	if res.Added != 2 || res.Replaced != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if existing[1].Value != 3 {
		t.Fatalf("merge mutated its input")
	}
}

func randomNames(r *rand.Rand, prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, r.Intn(1_000_000))
	}
	return out
}

func TestMergeProperties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		// Disjoint name spaces: lengths add up.
		seenEx := map[string]bool{}
		var existing []core.LineItem
		for _, n := range randomNames(r, "ex", r.Intn(10)) {
			if seenEx[n] {
				continue
			}
			seenEx[n] = true
			existing = append(existing, core.LineItem{Name: n, Value: float64(r.Intn(100))})
		}
		seenIn := map[string]bool{}
		var incoming []core.RawRecord
		for _, n := range randomNames(r, "in", r.Intn(10)) {
			if seenIn[n] {
				continue
			}
			seenIn[n] = true
			incoming = append(incoming, core.RawRecord{Name: n, Amount: strconv.Itoa(r.Intn(100))})
		}
		got := Merge(existing, incoming, scope)
		if len(got) != len(existing)+len(incoming) {
			t.Fatalf("iter %d: len %d, want %d", iter, len(got), len(existing)+len(incoming))
		}

		// Overlapping names: no duplicates, incoming value wins.
		overlap := make([]core.RawRecord, 0, len(existing))
		for _, it := range existing {
			overlap = append(overlap, core.RawRecord{Name: it.Name, Amount: strconv.Itoa(r.Intn(1000) + 1000)})
		}
		overlap = append(overlap, incoming...)
		merged := Merge(existing, overlap, scope)
		seen := map[string]bool{}
		for _, it := range merged {
			if seen[it.Name] {
				t.Fatalf("iter %d: duplicate name %q", iter, it.Name)
			}
			seen[it.Name] = true
		}
		byName := map[string]float64{}
		for _, it := range merged {
			byName[it.Name] = it.Value
		}
		for _, rec := range overlap {
			if byName[rec.Name] != core.CoerceAmount(rec.Amount) {
				t.Fatalf("iter %d: %q = %v, want incoming %s", iter, rec.Name, byName[rec.Name], rec.Amount)
			}
		}
	}
}
