package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"budgeting/internal/core"
	applog "budgeting/internal/log"
	"budgeting/internal/remote"
	"budgeting/internal/storage"
)

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	scope, err := listScope(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items, ok := s.lists.Get(scope); ok {
		NewJSONResponse().Header("X-Cache", "HIT").Items(scope.Category, items).Write(w)
		return
	}

	items, err := s.repo.List(r.Context(), scope)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.lists.Set(scope, items)
	NewJSONResponse().Header("X-Cache", "MISS").Items(scope.Category, items).Write(w)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := categoryParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if c == core.Expense && isBulkRequest(body) {
		s.handleBulk(w, r, body)
		return
	}

	item, err := remote.DecodeItem(c, body)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	scope, err := scopeOf(c, item.UserID, string(item.Month))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stored, err := s.repo.Upsert(r.Context(), scope, item)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.lists.Invalidate(scope)

	s.requestLogger(r).InfoContext(r.Context(), "Line item stored",
		applog.NewFields().WithScope(scope).WithItem(stored).WithOperation(applog.OpCreate).ToSlice()...)
	NewJSONResponse().Status(http.StatusCreated).Item(c, stored).Write(w)
}

// handleBulk writes a batch of expenses in one transaction. Every item must
// belong to the same user and month.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request, body []byte) {
	var req remote.BulkRequest
	if err := json.Unmarshal(body, &req); err != nil {
		BadRequestError("invalid bulk request body").Write(w)
		return
	}
	if len(req.Expenses) == 0 {
		NewJSONResponse().JSON(ackBody{Message: "nothing to import"}).Write(w)
		return
	}

	items := make([]core.LineItem, 0, len(req.Expenses))
	var scope core.Scope
	for i, raw := range req.Expenses {
		item, err := remote.DecodeItem(core.Expense, raw)
		if err != nil {
			BadRequestError(fmt.Sprintf("expense %d: %v", i, err)).Write(w)
			return
		}
		itemScope, err := scopeOf(core.Expense, item.UserID, string(item.Month))
		if err != nil {
			BadRequestError(fmt.Sprintf("expense %d: %v", i, err)).Write(w)
			return
		}
		if i == 0 {
			scope = itemScope
		} else if itemScope != scope {
			BadRequestError("all expenses in a batch must share userId and month").Write(w)
			return
		}
		items = append(items, item)
	}

	if err := s.repo.UpsertMany(r.Context(), scope, items); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.lists.Invalidate(scope)

	s.requestLogger(r).InfoContext(r.Context(), "Expenses imported",
		applog.NewFields().WithScope(scope).WithCount(len(items)).WithOperation(applog.OpImport).ToSlice()...)
	NewJSONResponse().JSON(ackBody{Message: "imported", Count: len(items)}).Write(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	scope, key, err := itemScope(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req remote.UpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		BadRequestError("invalid update body").Write(w)
		return
	}
	patch := req.Patch()
	if patch.Empty() {
		BadRequestError("nothing to update: set newValue or newTags").Write(w)
		return
	}
	if patch.Tags != nil && scope.Category != core.Expense {
		BadRequestError(fmt.Sprintf("%s items have no tags", scope.Category)).Write(w)
		return
	}

	updated, err := s.repo.Update(r.Context(), scope, key, patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.lists.Invalidate(scope)

	s.requestLogger(r).InfoContext(r.Context(), "Line item updated",
		applog.NewFields().WithScope(scope).WithItem(updated).WithOperation(applog.OpUpdate).ToSlice()...)
	NewJSONResponse().Item(scope.Category, updated).Write(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	scope, key, err := itemScope(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.repo.Delete(r.Context(), scope, key); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.lists.Invalidate(scope)

	s.requestLogger(r).InfoContext(r.Context(), "Line item deleted",
		append(applog.NewFields().WithScope(scope).WithOperation(applog.OpDelete).ToSlice(), applog.FieldItemKey, key)...)
	NewJSONResponse().JSON(ackBody{Message: "deleted"}).Write(w)
}

// writeError maps domain and storage errors to status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownCategory):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, errBodyTooLarge):
		RequestTooLargeError(err.Error()).Write(w)
	case errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyUser),
		errors.Is(err, core.ErrInvalidMonth):
		BadRequestError(err.Error()).Write(w)
	default:
		s.requestLogger(r).ErrorContext(r.Context(), "Request failed",
			applog.NewFields().WithError(err).ToSlice()...)
		InternalServerError("internal error").Write(w)
	}
}

// requestLogger returns the request scoped logger set up by the tracer.
func (s *Server) requestLogger(r *http.Request) *applog.Logger {
	if l, ok := r.Context().Value(applog.LoggerContextKey).(*applog.Logger); ok {
		return l.WithComponent(applog.ComponentHTTP)
	}
	return s.logger
}
