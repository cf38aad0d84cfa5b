// Package importer merges externally sourced rows into an existing set of
// line items, keyed by name.
package importer

import (
	"strings"

	"budgeting/internal/core"
)

// Result is a merged batch together with what happened to each row.
type Result struct {
	Items    []core.LineItem
	Added    int // names not present before the import
	Replaced int // existing names overwritten by the import
	Dropped  int // rows without a name
	Zeroed   int // rows whose amount could not be read and became 0
}

// Merge returns the union of existing and incoming keyed by name.
// See Plan for the rules.
func Merge(existing []core.LineItem, incoming []core.RawRecord, scope core.Scope) []core.LineItem {
	return Plan(existing, incoming, scope).Items
}

// Plan merges incoming rows into existing items:
//   - an incoming row replaces the existing item with the same name (import wins);
//   - rows without a name are dropped;
//   - unreadable amounts become 0, the batch never aborts;
//   - existing items keep their order, new names follow in first-arrival order;
//   - repeated names inside the batch collapse to the last row.
//
// A replaced item keeps its remote id, since the store addresses the same
// record by name.
func Plan(existing []core.LineItem, incoming []core.RawRecord, scope core.Scope) Result {
	var res Result
	out := make([]core.LineItem, 0, len(existing)+len(incoming))
	pos := make(map[string]int, len(existing)+len(incoming))
	preexisting := make(map[string]bool, len(existing))

	for _, it := range existing {
		it = it.Clone()
		if i, ok := pos[it.Name]; ok {
			out[i] = it
			continue
		}
		pos[it.Name] = len(out)
		preexisting[it.Name] = true
		out = append(out, it)
	}

	replaced := map[string]bool{}
	for _, rec := range incoming {
		item, ok := fromRecord(rec, scope)
		if !ok {
			res.Dropped++
			continue
		}
		if _, err := core.ParseAmount(rec.Amount); err != nil {
			res.Zeroed++
		}
		i, seen := pos[item.Name]
		if !seen {
			pos[item.Name] = len(out)
			out = append(out, item)
			res.Added++
			continue
		}
		item.ID = out[i].ID
		out[i] = item
		if preexisting[item.Name] && !replaced[item.Name] {
			replaced[item.Name] = true
			res.Replaced++
		}
	}

	res.Items = out
	return res
}

func fromRecord(rec core.RawRecord, scope core.Scope) (core.LineItem, bool) {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return core.LineItem{}, false
	}
	item := core.LineItem{
		Name:  name,
		Value: core.CoerceAmount(rec.Amount),
		Tags:  []string{},
	}
	if tag := strings.TrimSpace(rec.Tag); tag != "" {
		item.Tags = []string{tag}
	}
	return item.InScope(scope), true
}
