package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  Category = "income"
	Budget  Category = "budget"
	Expense Category = "expense"
)

// monthLayout is the calendar-month key format (YYYY-MM).
const monthLayout = "2006-01"

type (
	// Category partitions line items into income sources, budget categories
	// and expense transactions.
	Category string

	// Month is a YYYY-MM calendar month key.
	Month string

	// Scope is the (user, month, category) triple that partitions line items.
	Scope struct {
		UserID   string
		Month    Month
		Category Category
	}

	// Session carries the authenticated user and the opaque bearer credential.
	// It is passed explicitly to every remote call.
	Session struct {
		UserID string
		Token  string
	}

	LineItem struct {
		ID     string // assigned by the remote store; empty until the first create succeeds
		Name   string // natural key within a scope
		Value  float64
		Tags   []string // expense items only
		Month  Month
		UserID string
	}

	// RawRecord is one externally sourced row, as parsed from a spreadsheet.
	RawRecord struct {
		Name   string
		Amount string
		Tag    string
	}

	// Patch holds only the attributes changed by an edit. Nil means unchanged.
	Patch struct {
		Value *float64
		Tags  *[]string
	}
)

var (
	ErrEmptyName       = errors.New("empty item name")
	ErrEmptyUser       = errors.New("empty user id")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoCredential    = errors.New("missing credential")
)

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Income, Budget, Expense}
}

func (c Category) String() string {
	return string(c)
}

func (c Category) Validate() error {
	switch c {
	case Income, Budget, Expense:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
	}
}

// ParseCategory accepts a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// ParseMonth validates a YYYY-MM key.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month(s), nil
}

// MonthOf returns the month key containing t.
func MonthOf(t time.Time) Month {
	return Month(t.Format(monthLayout))
}

// CurrentMonth returns the month key for today.
func CurrentMonth() Month {
	return MonthOf(time.Now())
}

func (m Month) String() string {
	return string(m)
}

func (m Month) Validate() error {
	_, err := ParseMonth(string(m))
	return err
}

// Label formats the month for display, e.g. "March 2025".
func (m Month) Label() string {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return string(m)
	}
	return t.Format("January 2006")
}

func (s Scope) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	if err := s.Month.Validate(); err != nil {
		return err
	}
	return s.Category.Validate()
}

// Key renders the scope as a single string, usable as a map or cache key.
func (s Scope) Key() string {
	return s.UserID + "#" + string(s.Month) + "#" + string(s.Category)
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s/%s", s.Category, s.UserID, s.Month)
}

// Scope returns the scope for the given category.
func (s Session) Scope(month Month, c Category) Scope {
	return Scope{UserID: s.UserID, Month: month, Category: c}
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return ErrEmptyUser
	}
	if strings.TrimSpace(s.Token) == "" {
		return ErrNoCredential
	}
	return nil
}

func (it LineItem) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyName
	}
	if len(it.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

// Key is the identity used to address the item remotely: its id once
// synced, its name before that.
func (it LineItem) Key() string {
	if it.ID != "" {
		return it.ID
	}
	return it.Name
}

// Synced reports whether the remote store has assigned an id.
func (it LineItem) Synced() bool {
	return it.ID != ""
}

// Tag returns the first tag, or "" when untagged.
func (it LineItem) Tag() string {
	if len(it.Tags) == 0 {
		return ""
	}
	return it.Tags[0]
}

// Clone returns a copy that shares no slices with it.
func (it LineItem) Clone() LineItem {
	if it.Tags != nil {
		it.Tags = append([]string(nil), it.Tags...)
	}
	return it
}

// InScope stamps the item with the scope owner and month.
func (it LineItem) InScope(s Scope) LineItem {
	it.UserID = s.UserID
	it.Month = s.Month
	return it
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Value == nil && p.Tags == nil
}

// Apply returns item with the patched attributes replaced.
func (p Patch) Apply(item LineItem) LineItem {
	item = item.Clone()
	if p.Value != nil {
		item.Value = CoerceFloat(*p.Value)
	}
	if p.Tags != nil {
		item.Tags = append([]string{}, (*p.Tags)...)
	}
	return item
}

// Diff builds the patch that turns from into to. Only value and tags are
// compared; names and ids are identity, not editable attributes.
func Diff(from, to LineItem) Patch {
	var p Patch
	if from.Value != to.Value {
		v := to.Value
		p.Value = &v
	}
	if !equalTags(from.Tags, to.Tags) {
		tags := append([]string{}, to.Tags...)
		p.Tags = &tags
	}
	return p
}

func equalTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
