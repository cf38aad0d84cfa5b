package remote

import (
	"encoding/json"
	"fmt"
	"strings"

	"budgeting/internal/core"
)

// Wire field names used by the remote store, per category.
type fieldSet struct {
	Name  string
	Value string
	Tags  string // empty when the category has no tags
}

var fields = map[core.Category]fieldSet{
	core.Income:  {Name: "incomeItemName", Value: "incomeItemValue"},
	core.Budget:  {Name: "budgetItemName", Value: "budgetItemValue"},
	core.Expense: {Name: "expenseItemName", Value: "expenseItemValue", Tags: "expenseTags"},
}

const (
	fieldID     = "id"
	fieldUserID = "userId"
	fieldMonth  = "month"
)

// UpdateRequest is the PUT body. Only changed attributes are present.
type UpdateRequest struct {
	NewValue *float64  `json:"newValue,omitempty"`
	NewTags  *[]string `json:"newTags,omitempty"`
}

// BulkRequest is the POST /expense import body.
type BulkRequest struct {
	Expenses []json.RawMessage `json:"expenses"`
}

// NewUpdateRequest converts a patch to its wire form.
func NewUpdateRequest(p core.Patch) UpdateRequest {
	return UpdateRequest{NewValue: p.Value, NewTags: p.Tags}
}

// Patch converts the wire form back to a patch, coercing the value.
func (u UpdateRequest) Patch() core.Patch {
	p := core.Patch{Tags: u.NewTags}
	if u.NewValue != nil {
		v := core.CoerceFloat(*u.NewValue)
		p.Value = &v
	}
	return p
}

// EncodeItem renders item with the category's field names.
func EncodeItem(c core.Category, item core.LineItem) ([]byte, error) {
	fs, ok := fields[c]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownCategory, string(c))
	}
	m := map[string]any{
		fieldUserID: item.UserID,
		fieldMonth:  string(item.Month),
		fs.Name:     item.Name,
		fs.Value:    core.CoerceFloat(item.Value),
	}
	if item.ID != "" {
		m[fieldID] = item.ID
	}
	if fs.Tags != "" {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		m[fs.Tags] = tags
	}
	return json.Marshal(m)
}

// DecodeItem reads one item in the category's wire form. Values may be
// numbers or numeric strings; anything else becomes 0. Items without a name
// are rejected.
func DecodeItem(c core.Category, data []byte) (core.LineItem, error) {
	fs, ok := fields[c]
	if !ok {
		return core.LineItem{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, string(c))
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.LineItem{}, fmt.Errorf("decode %s item: %w", c, err)
	}
	item := core.LineItem{
		ID:     rawString(raw[fieldID]),
		Name:   strings.TrimSpace(rawString(raw[fs.Name])),
		Value:  core.CoerceJSON(raw[fs.Value]),
		Month:  core.Month(rawString(raw[fieldMonth])),
		UserID: rawString(raw[fieldUserID]),
	}
	if fs.Tags != "" {
		item.Tags = rawStrings(raw[fs.Tags])
	}
	if err := item.Validate(); err != nil {
		return core.LineItem{}, fmt.Errorf("decode %s item: %w", c, err)
	}
	return item, nil
}

// DecodeItems reads a JSON array of items. Malformed entries are skipped
// and counted; a body that is not an array is an error.
func DecodeItems(c core.Category, data []byte) ([]core.LineItem, int, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, 0, fmt.Errorf("decode %s list: %w", c, err)
	}
	items := make([]core.LineItem, 0, len(raws))
	skipped := 0
	for _, r := range raws {
		item, err := DecodeItem(c, r)
		if err != nil {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}

// rawString accepts a JSON string or number; anything else is "".
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawStrings(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var vals []any
	if err := json.Unmarshal(raw, &vals); err != nil {
		return out
	}
	for _, v := range vals {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
