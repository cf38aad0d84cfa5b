package reconcile

import (
	"errors"
	"fmt"

	"budgeting/internal/core"
)

// Op names a remote operation family.
type Op string

const (
	OpFetch      Op = "fetch"
	OpCreate     Op = "create"
	OpUpdate     Op = "update"
	OpDelete     Op = "delete"
	OpBulkUpsert Op = "bulk_upsert"
)

var (
	ErrFetchFailed      = errors.New("fetch failed")
	ErrCreateFailed     = errors.New("create failed")
	ErrUpdateFailed     = errors.New("update failed")
	ErrDeleteFailed     = errors.New("delete failed")
	ErrBulkUpsertFailed = errors.New("bulk upsert failed")

	// ErrStaleResponse is returned when a response arrives for a load cycle
	// that has since been replaced, e.g. after a month switch.
	ErrStaleResponse = errors.New("stale response dropped")

	ErrNotLoaded         = errors.New("ledger has no active scope")
	ErrItemNotFound      = errors.New("item not found")
	ErrImportUnsupported = errors.New("import is only supported for expenses")
	ErrWrongUser         = errors.New("session user does not own the active scope")
)

// SyncError reports a failed remote operation and the scope it addressed.
type SyncError struct {
	Op    Op
	Scope core.Scope
	Err   error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Scope, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is matches the failure sentinel of the operation.
func (e *SyncError) Is(target error) bool {
	return target == e.Op.sentinel()
}

func (o Op) sentinel() error {
	switch o {
	case OpFetch:
		return ErrFetchFailed
	case OpCreate:
		return ErrCreateFailed
	case OpUpdate:
		return ErrUpdateFailed
	case OpDelete:
		return ErrDeleteFailed
	case OpBulkUpsert:
		return ErrBulkUpsertFailed
	default:
		return nil
	}
}
