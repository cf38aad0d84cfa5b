package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the month totals shown next to the income and budget lists.
type Summary struct {
	TotalIncome float64
	TotalBudget float64
	Remaining   float64
}

// TagAmount is the expense total for one tag.
type TagAmount struct {
	Tag    string
	Amount float64
}

// Total sums item values. Sums are exact decimals so the result does not
// depend on item order.
func Total(items []LineItem) float64 {
	f, _ := total(items).Float64()
	return f
}

func total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(CoerceFloat(it.Value)))
	}
	return sum
}

// Summarize derives income, budget and remaining totals.
func Summarize(income, budget []LineItem) Summary {
	in := total(income)
	out := total(budget)
	ti, _ := in.Float64()
	tb, _ := out.Float64()
	rem, _ := in.Sub(out).Float64()
	return Summary{TotalIncome: ti, TotalBudget: tb, Remaining: rem}
}

// TagTotals groups expense values by their first tag. Untagged items are
// reported under "". Results are sorted by tag.
func TagTotals(expenses []LineItem) []TagAmount {
	sums := map[string]decimal.Decimal{}
	for _, it := range expenses {
		tag := it.Tag()
		sums[tag] = sums[tag].Add(decimal.NewFromFloat(CoerceFloat(it.Value)))
	}
	out := make([]TagAmount, 0, len(sums))
	for tag, d := range sums {
		f, _ := d.Float64()
		out = append(out, TagAmount{Tag: tag, Amount: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}
