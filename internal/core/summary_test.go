package core

import (
	"math"
	"math/rand"
	"testing"
)

func items(values ...float64) []LineItem {
	out := make([]LineItem, len(values))
	for i, v := range values {
		out[i] = LineItem{Name: string(rune('a' + i)), Value: v}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(items(3000, 250.5), items(1200, 400, 0.1, 0.2))
	if s.TotalIncome != 3250.5 {
		t.Fatalf("income: got %v", s.TotalIncome)
	}
	if s.TotalBudget != 1600.3 {
		t.Fatalf("budget: got %v", s.TotalBudget)
	}
	if s.Remaining != 1650.2 {
		t.Fatalf("remaining: got %v", s.Remaining)
	}
}

func TestSummarizeTreatsNonFiniteAsZero(t *testing.T) {
	s := Summarize(items(100, math.NaN()), items(math.Inf(1)))
	if s.TotalIncome != 100 || s.TotalBudget != 0 || s.Remaining != 100 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestSummaryPermutationInvariant(t *testing.T) {
	income := items(0.1, 0.2, 0.3, 1e6, 12.34, 7.77)
	budget := items(0.7, 1.1, 99.99, 0.01)
	want := Summarize(income, budget)

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		r.Shuffle(len(income), func(a, b int) { income[a], income[b] = income[b], income[a] })
		r.Shuffle(len(budget), func(a, b int) { budget[a], budget[b] = budget[b], budget[a] })
		if got := Summarize(income, budget); got != want {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestTagTotals(t *testing.T) {
	exp := []LineItem{
		{Name: "a", Value: 10, Tags: []string{"Food"}},
		{Name: "b", Value: 5},
		{Name: "c", Value: 2.5, Tags: []string{"Food"}},
		{Name: "d", Value: 40, Tags: []string{"Utilities"}},
	}
	got := TagTotals(exp)
	want := []TagAmount{{"", 5}, {"Food", 12.5}, {"Utilities", 40}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}
