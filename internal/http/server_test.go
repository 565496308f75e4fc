package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"tally/internal/services"
	"tally/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	users := services.NewUserService(repo)
	s := NewServer("127.0.0.1:0",
		services.NewAuthService(repo, time.Hour),
		services.NewTransactionService(repo, nil),
		services.NewRecurringService(repo, nil),
		services.NewSummaryService(repo, users),
		services.NewSavingsService(repo),
		users,
		nil,
	)
	srv := httptest.NewServer(s.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func registerAndLogin(t *testing.T, base string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "s3cret",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/api/auth/login", "", map[string]string{
		"username": "alice", "password": "s3cret",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Token == "" {
		t.Fatal("login returned empty token")
	}
	return login.Token
}

func TestAPI_RequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/transactions", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAPI_RecurringLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv.URL)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/recurring", token, map[string]any{
		"amount":      "100",
		"currency":    "EUR",
		"category":    "RENT",
		"status":      "OUTGOING",
		"description": "monthly rent",
		"schedule": map[string]int{
			"dayOfMonth": 15,
			"startMonth": 1, "startYear": 2024,
			"endMonth": 3, "endYear": 2024,
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create recurring status = %d, body %s", resp.StatusCode, body)
	}
	var created struct {
		ID       int64  `json:"id"`
		Date     string `json:"date"`
		SeriesID string `json:"seriesId"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Date != "2024-01-15" {
		t.Errorf("first instance date = %s, want 2024-01-15", created.Date)
	}
	if created.SeriesID == "" {
		t.Error("created instance has no series id")
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/recurring", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list recurring status = %d", resp.StatusCode)
	}
	var listed []struct {
		SeriesID string `json:"seriesId"`
	}
	if err := json.Unmarshal(body, &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d series, want 1", len(listed))
	}

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/summary/yearly?year=2024", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	var summary struct {
		TotalOutgoings string `json:"totalOutgoings"`
		Categories     map[string][]struct {
			TransactionCount int    `json:"transactionCount"`
			TotalAmount      string `json:"totalAmount"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalOutgoings != "300" {
		t.Errorf("totalOutgoings = %s, want 300", summary.TotalOutgoings)
	}
	if aggs := summary.Categories["RENT"]; len(aggs) != 1 || aggs[0].TransactionCount != 3 {
		t.Errorf("RENT aggregates = %+v, want one bucket of 3", aggs)
	}

	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/recurring/"+itoa(created.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete recurring status = %d, body %s", resp.StatusCode, body)
	}
	var deleted struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(body, &deleted); err != nil {
		t.Fatalf("decode delete response: %v", err)
	}
	if deleted.Deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted.Deleted)
	}
}

func TestAPI_TransactionValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv.URL)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", token, map[string]any{
		"amount":   "10",
		"currency": "EUR",
		"category": "NOT_A_CATEGORY",
		"status":   "OUTGOING",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPI_NotFound(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv.URL)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/transactions/424242", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
