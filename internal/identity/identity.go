// Package identity decides whether a submitted line item creates a new
// record or edits an existing one.
//
// The decision is an explicit tagged value rather than an index check, so an
// edit of the first row can never be mistaken for "no edit in progress".
package identity

import (
	"errors"
	"fmt"

	"budgeting/internal/core"
)

// Kind tags an Intent.
type Kind int

const (
	// Zero Kind is deliberately invalid.
	_ Kind = iota
	Create
	Edit
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Edit:
		return "edit"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var ErrNoIntent = errors.New("no intent")

// Intent is either Create or Edit of a target item.
type Intent struct {
	kind   Kind
	target core.LineItem
}

// NewCreate returns the Create intent.
func NewCreate() Intent {
	return Intent{kind: Create}
}

// EditOf returns an Edit intent aimed at target.
func EditOf(target core.LineItem) Intent {
	return Intent{kind: Edit, target: target.Clone()}
}

// Resolve maps the editing marker to an intent: nil means Create, anything
// else is an Edit of the marked item.
func Resolve(marker *core.LineItem) Intent {
	if marker == nil {
		return NewCreate()
	}
	return EditOf(*marker)
}

func (i Intent) Kind() Kind {
	return i.kind
}

// Target returns the edited item. ok is false for Create.
func (i Intent) Target() (core.LineItem, bool) {
	if i.kind != Edit {
		return core.LineItem{}, false
	}
	return i.target.Clone(), true
}

func (i Intent) String() string {
	if i.kind == Edit {
		return fmt.Sprintf("edit(%s)", i.target.Key())
	}
	return i.kind.String()
}

// Action is the remote-ready form of an intent applied to a draft.
type Action struct {
	Kind Kind
	// Item is the full payload for Create, or the locally updated item for
	// Edit (target identity with the patch applied).
	Item core.LineItem
	// Key addresses the edited record (id, or name before sync). Empty for Create.
	Key string
	// Patch holds only the changed attributes. Empty for Create.
	Patch core.Patch
}

// NoOp reports whether an Edit changes nothing.
func (a Action) NoOp() bool {
	return a.Kind == Edit && a.Patch.Empty()
}

// Plan turns the submitted draft into an Action.
//
// Create sends the whole draft. Edit keeps the target's id and name and
// carries only the value and tag changes; a different name in the draft is
// ignored because the name is the record's identity.
func (i Intent) Plan(draft core.LineItem) (Action, error) {
	switch i.kind {
	case Create:
		item := draft.Clone()
		item.ID = ""
		item.Value = core.CoerceFloat(item.Value)
		if err := item.Validate(); err != nil {
			return Action{}, err
		}
		return Action{Kind: Create, Item: item}, nil
	case Edit:
		if err := i.target.Validate(); err != nil {
			return Action{}, fmt.Errorf("edit target: %w", err)
		}
		draft.Value = core.CoerceFloat(draft.Value)
		patch := core.Diff(i.target, draft)
		return Action{
			Kind:  Edit,
			Item:  patch.Apply(i.target),
			Key:   i.target.Key(),
			Patch: patch,
		}, nil
	default:
		return Action{}, ErrNoIntent
	}
}
