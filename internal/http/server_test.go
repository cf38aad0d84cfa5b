package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"budgeting/internal/core"
	"budgeting/internal/identity"
	"budgeting/internal/reconcile"
	"budgeting/internal/remote"
	"budgeting/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(":0", storage.NewMemoryRepository(), Options{CacheTTL: 0})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer tok")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeList(t *testing.T, c core.Category, rr *httptest.ResponseRecorder) []core.LineItem {
	t.Helper()
	items, skipped, err := remote.DecodeItems(c, rr.Body.Bytes())
	if err != nil || skipped != 0 {
		t.Fatalf("decode list: %v (skipped %d): %s", err, skipped, rr.Body.String())
	}
	return items
}

func TestHealthEndpointsNeedNoCredential(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestStoreRequiresCredential(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		header string
		want   int
	}{
		{header: "", want: http.StatusUnauthorized},
		{header: "Bearer ", want: http.StatusUnauthorized},
		{header: "Bearer tok", want: http.StatusOK},
		{header: "raw-token", want: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/income?userId=u1&month=2025-03", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != tt.want {
			t.Errorf("Authorization %q: status=%d, want %d", tt.header, rr.Code, tt.want)
		}
	}
}

func TestCreateListUpdateDelete(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/expense",
		`{"userId":"u1","month":"2025-03","expenseItemName":"Rent / March","expenseItemValue":"1200","expenseTags":["housing"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	created, err := remote.DecodeItem(core.Expense, rr.Body.Bytes())
	if err != nil || created.ID == "" || created.Value != 1200 {
		t.Fatalf("created = %+v, %v", created, err)
	}

	rr = do(t, srv, http.MethodPut, "/api/expense/u1/2025-03/Rent%20%2F%20March", `{"newValue":1300}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update by name status=%d body=%s", rr.Code, rr.Body.String())
	}
	rr = do(t, srv, http.MethodPut, "/api/expense/u1/2025-03/"+created.ID, `{"newTags":["home"]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update by id status=%d body=%s", rr.Code, rr.Body.String())
	}

	items := decodeList(t, core.Expense, do(t, srv, http.MethodGet, "/api/expense?userId=u1&month=2025-03", ""))
	want := []core.LineItem{{ID: created.ID, Name: "Rent / March", Value: 1300, Tags: []string{"home"}, UserID: "u1", Month: "2025-03"}}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}

	if rr := do(t, srv, http.MethodDelete, "/api/expense/u1/2025-03/"+created.ID, ""); rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/expense/u1/2025-03/"+created.ID, ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown category", http.MethodGet, "/api/savings?userId=u1&month=2025-03", "", http.StatusNotFound},
		{"missing user", http.MethodGet, "/api/income?month=2025-03", "", http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/income?userId=u1&month=March", "", http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/income", `{"userId":"u1","month":"2025-03","incomeItemValue":5}`, http.StatusBadRequest},
		{"missing month on create", http.MethodPost, "/api/income", `{"userId":"u1","incomeItemName":"Salary"}`, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/api/budget", `{`, http.StatusBadRequest},
		{"empty patch", http.MethodPut, "/api/income/u1/2025-03/Salary", `{}`, http.StatusBadRequest},
		{"tags on income", http.MethodPut, "/api/income/u1/2025-03/Salary", `{"newTags":["x"]}`, http.StatusBadRequest},
		{"update unknown item", http.MethodPut, "/api/income/u1/2025-03/Ghost", `{"newValue":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d; body=%s", rr.Code, tt.want, rr.Body.String())
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Fatalf("expected JSON error body, got %s", rr.Body.String())
			}
		})
	}
}

func TestBulkImport(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodPost, "/api/expense", `{"userId":"u1","month":"2025-03","expenseItemName":"Rent","expenseItemValue":1000}`)

	rr := do(t, srv, http.MethodPost, "/api/expense", `{"expenses":[
		{"userId":"u1","month":"2025-03","expenseItemName":"Rent","expenseItemValue":1300},
		{"userId":"u1","month":"2025-03","expenseItemName":"Books","expenseItemValue":"abc"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk status=%d body=%s", rr.Code, rr.Body.String())
	}
	items := decodeList(t, core.Expense, do(t, srv, http.MethodGet, "/api/expense?userId=u1&month=2025-03", ""))
	if len(items) != 2 || items[0].Name != "Rent" || items[0].Value != 1300 || items[1].Value != 0 {
		t.Fatalf("unexpected items %+v", items)
	}

	rr = do(t, srv, http.MethodPost, "/api/expense", `{"expenses":[
		{"userId":"u1","month":"2025-03","expenseItemName":"A","expenseItemValue":1},
		{"userId":"u1","month":"2025-04","expenseItemName":"B","expenseItemValue":2}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("mixed scope batch status=%d", rr.Code)
	}
}

func TestListIsCachedAndInvalidatedOnWrite(t *testing.T) {
	srv := NewServer(":0", storage.NewMemoryRepository(), Options{CacheTTL: time.Minute})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	list := "/api/income?userId=u1&month=2025-03"

	if rr := do(t, srv, http.MethodGet, list, ""); rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first list X-Cache=%q", rr.Header().Get("X-Cache"))
	}
	if rr := do(t, srv, http.MethodGet, list, ""); rr.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second list X-Cache=%q", rr.Header().Get("X-Cache"))
	}
	do(t, srv, http.MethodPost, "/api/income", `{"userId":"u1","month":"2025-03","incomeItemName":"Salary","incomeItemValue":3000}`)

	rr := do(t, srv, http.MethodGet, list, "")
	if rr.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("write did not invalidate cache")
	}
	if items := decodeList(t, core.Income, rr); len(items) != 1 {
		t.Fatalf("stale list %+v", items)
	}
	if st := srv.CacheStats(); st.Hits != 1 {
		t.Fatalf("cache stats %+v", st)
	}
}

// TestWorkspaceAgainstServer drives the client side engine through the
// real transport and store.
func TestWorkspaceAgainstServer(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	client, err := remote.New(ts.URL + APIPrefix)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	sess := core.Session{UserID: "u1", Token: "tok"}
	ws := reconcile.NewWorkspace(client, nil)

	if err := ws.SwitchMonth(ctx, sess, "2025-03"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if err := ws.LoadExpenses(ctx, sess); err != nil {
		t.Fatalf("load expenses: %v", err)
	}

	salary, err := ws.Income.Submit(ctx, sess, core.LineItem{Name: "Salary", Value: 3000}, identity.NewCreate())
	if err != nil || salary.ID == "" {
		t.Fatalf("create: %+v %v", salary, err)
	}
	if _, err := ws.Income.SetValue(ctx, sess, "Salary", 3500); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := ws.Budget.Submit(ctx, sess, core.LineItem{Name: "Food", Value: 400}, identity.NewCreate()); err != nil {
		t.Fatalf("budget create: %v", err)
	}

	res, err := ws.Expense.Import(ctx, sess, []core.RawRecord{
		{Name: "Rent", Amount: "1200", Tag: "housing"},
		{Name: "Coffee", Amount: "3.5"},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Added != 2 {
		t.Fatalf("import result %+v", res)
	}
	if err := ws.Expense.Delete(ctx, sess, "Coffee"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A fresh workspace sees what the first one wrote.
	other := reconcile.NewWorkspace(client, nil)
	if err := other.SwitchMonth(ctx, sess, "2025-03"); err != nil {
		t.Fatal(err)
	}
	if err := other.LoadExpenses(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if names := other.Expense.Items(); len(names) != 1 || names[0].Name != "Rent" || names[0].Tag() != "housing" {
		t.Fatalf("expenses after reload: %+v", names)
	}
	got := other.Summary()
	want := core.Summary{TotalIncome: 3500, TotalBudget: 400, Remaining: 3100}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}

	_, err = other.Income.SetValue(ctx, sess, "Ghost", 1)
	if !errors.Is(err, reconcile.ErrUpdateFailed) {
		t.Fatalf("edit of unknown item: %v", err)
	}
}
