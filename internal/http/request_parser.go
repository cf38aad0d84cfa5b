package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgeting/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errMissingCredential = errors.New("missing bearer credential")
	errBodyTooLarge      = errors.New("request body too large")
)

// bearerToken returns the credential from the Authorization header. Both
// "Bearer <token>" and a bare token are accepted.
func bearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", errMissingCredential
	}
	if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
		h = strings.TrimSpace(token)
	}
	if h == "" {
		return "", errMissingCredential
	}
	return h, nil
}

// categoryParam reads the {category} path segment.
func categoryParam(r *http.Request) (core.Category, error) {
	return core.ParseCategory(r.PathValue("category"))
}

// listScope builds the scope of a GET /{category}?userId=&month= request.
func listScope(r *http.Request) (core.Scope, error) {
	c, err := categoryParam(r)
	if err != nil {
		return core.Scope{}, err
	}
	q := r.URL.Query()
	return scopeOf(c, q.Get("userId"), q.Get("month"))
}

// itemScope builds the scope and key of a /{category}/{userId}/{month}/{key}
// request.
func itemScope(r *http.Request) (core.Scope, string, error) {
	c, err := categoryParam(r)
	if err != nil {
		return core.Scope{}, "", err
	}
	scope, err := scopeOf(c, r.PathValue("userId"), r.PathValue("month"))
	if err != nil {
		return core.Scope{}, "", err
	}
	key := sanitizeInput(r.PathValue("key"))
	if key == "" {
		return core.Scope{}, "", core.ErrEmptyName
	}
	return scope, key, nil
}

func scopeOf(c core.Category, userID, month string) (core.Scope, error) {
	userID = sanitizeInput(userID)
	if userID == "" {
		return core.Scope{}, core.ErrEmptyUser
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Scope{}, err
	}
	return core.Scope{UserID: userID, Month: m, Category: c}, nil
}

// readBody reads at most maxBodyBytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// isBulkRequest reports whether body is a {"expenses": [...]} envelope.
func isBulkRequest(body []byte) bool {
	var probe map[string]json.RawMessage
	if json.Unmarshal(body, &probe) != nil {
		return false
	}
	_, ok := probe["expenses"]
	return ok
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
