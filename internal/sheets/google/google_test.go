package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	goption "google.golang.org/api/option"

	"budgeting/internal/core"
)

type fakeSheets struct {
	mu      sync.Mutex
	values  [][]any
	methods []string
	written [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods = append(f.methods, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(map[string]any{"range": "Sheet1!A1:C10", "values": f.values})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
		f.values = nil
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.written = body.Values
		_, _ = w.Write([]byte(`{}`))
	default:
		http.Error(w, "unexpected", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-1"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadRecords(t *testing.T) {
	fake := &fakeSheets{values: [][]any{
		{"name", "amount", "category"},
		{"Rent", "1200", "housing"},
		{"Coffee", 3.5},
		{"", ""},
	}}
	c := newTestClient(t, fake)

	got, err := c.ReadRecords(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []core.RawRecord{
		{Name: "Rent", Amount: "1200", Tag: "housing"},
		{Name: "Coffee", Amount: "3.5"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(fake.methods[0], "GET /v4/spreadsheets/sheet-1/values/") {
		t.Fatalf("unexpected request %q", fake.methods[0])
	}
}

func TestWriteItemsClearsThenUpdates(t *testing.T) {
	fake := &fakeSheets{values: [][]any{{"stale"}}}
	c := newTestClient(t, fake)

	items := []core.LineItem{{Name: "Rent", Value: 1300, Tags: []string{"housing"}}}
	if err := c.WriteItems(context.Background(), items); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(fake.methods) != 2 || !strings.HasPrefix(fake.methods[0], "POST") || !strings.HasPrefix(fake.methods[1], "PUT") {
		t.Fatalf("unexpected calls %v", fake.methods)
	}
	want := [][]any{{"name", "amount", "category"}, {"Rent", "1300", "housing"}}
	if diff := cmp.Diff(want, fake.written); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
