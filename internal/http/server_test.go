package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/samhvw8/finance-tracking/internal/accounts"
	"github.com/samhvw8/finance-tracking/internal/categories"
	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
	"github.com/samhvw8/finance-tracking/internal/queue"
	"github.com/samhvw8/finance-tracking/internal/sheetdb"
	"github.com/samhvw8/finance-tracking/internal/store"
	"github.com/samhvw8/finance-tracking/internal/submit"
)

type stubRemote struct {
	rows    []payload.Row
	sheets  []string
	linked  int
	fetched []payload.Row
	err     error
}

func (r *stubRemote) CreateBatch(_ context.Context, rows []payload.Row, sheet string) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, rows...)
	r.sheets = append(r.sheets, sheet)
	return nil
}

func (r *stubRemote) CreateLinkedBatch(_ context.Context, investments, ledger []payload.Row, investmentSheet, ledgerSheet string) error {
	if r.err != nil {
		return r.err
	}
	r.linked++
	r.rows = append(r.rows, investments...)
	r.rows = append(r.rows, ledger...)
	r.sheets = append(r.sheets, investmentSheet, ledgerSheet)
	return nil
}

func (r *stubRemote) FetchAll(_ context.Context, _ string) ([]payload.Row, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.fetched, nil
}

func testLogger() *log.Logger {
	return log.New(slog.LevelError).WithComponent("http")
}

func newTestServer(t *testing.T, remote *stubRemote) (*Server, *store.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	logger := testLogger()

	txQueue := queue.New[core.Transaction](queue.TransactionPersister{Store: s}, logger)
	invQueue := queue.New[core.InvestmentTransaction](queue.InvestmentPersister{Store: s}, logger)
	if _, err := txQueue.Load(ctx); err != nil {
		t.Fatalf("txQueue.Load: %v", err)
	}
	if _, err := invQueue.Load(ctx); err != nil {
		t.Fatalf("invQueue.Load: %v", err)
	}

	cats := categories.NewManager(s, remote, sheetdb.SetupSheet, logger)
	cats.Initialize(ctx)
	accs := accounts.NewManager(s, remote, sheetdb.AccountSheet, logger)
	accs.Initialize(ctx)

	srv := NewServer(":0", Deps{
		Store:        s,
		TxQueue:      txQueue,
		InvQueue:     invQueue,
		Submitter:    submit.NewSubmitter(txQueue, remote, sheetdb.LedgerSheet, logger),
		InvSubmitter: submit.NewInvestmentSubmitter(invQueue, remote, sheetdb.InvestmentSheet, sheetdb.LedgerSheet, logger),
		Categories:   cats,
		Accounts:     accs,
		Logger:       logger,
	})
	return srv, s
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestQueueTransaction(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"date":"2026-08-29","type":"Chi Tiêu","category":"Ăn Uống","name":"Cơm trưa","amount":50000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == 0 {
		t.Error("response should carry the assigned queue id")
	}
	if resp.Date != "2026-08-29" || resp.Amount != 50000 {
		t.Errorf("response = %+v, want echoed transaction", resp)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	var list queueResponse[transactionResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("queue count = %d, want 1", list.Count)
	}
}

func TestQueueTransactionDefaultsCategory(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"Thu Nhập","name":"Lương tháng 8","amount":1000000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	var resp transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Category != core.DefaultCategory {
		t.Errorf("category = %q, want %q", resp.Category, core.DefaultCategory)
	}
}

func TestQueueTransactionValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "missing type",
			body:    `{"name":"x","amount":100}`,
			wantMsg: "Vui lòng chọn loại giao dịch",
		},
		{
			name:    "zero amount",
			body:    `{"type":"Chi Tiêu","name":"x","amount":0}`,
			wantMsg: "Vui lòng nhập số tiền hợp lệ",
		},
		{
			name:    "future date",
			body:    `{"date":"2093-01-01","type":"Chi Tiêu","name":"x","amount":100}`,
			wantMsg: "Ngày không thể trong tương lai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if resp.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantMsg)
			}
		})
	}
}

func TestRemoveAndClearTransactions(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"Chi Tiêu","name":"a","amount":100}`)
	var created transactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"Chi Tiêu","name":"b","amount":200}`)

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions/"+jsonID(created.ID), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/transactions", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	var list queueResponse[transactionResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 0 {
		t.Errorf("queue count after clear = %d, want 0", list.Count)
	}
}

func TestSubmitTransactions(t *testing.T) {
	remote := &stubRemote{}
	srv, _ := newTestServer(t, remote)

	doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"Chi Tiêu","name":"a","amount":100}`)

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions/submit", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Submitted != 1 {
		t.Errorf("submitted = %d, want 1", resp.Submitted)
	}
	if len(remote.rows) != 1 {
		t.Errorf("remote received %d rows, want 1", len(remote.rows))
	}
}

func TestSubmitEmptyQueue(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions/submit", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Không có giao dịch nào trong hàng chờ" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSubmitInvalidCredential(t *testing.T) {
	remote := &stubRemote{}
	srv, _ := newTestServer(t, remote)

	doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"Chi Tiêu","name":"a","amount":100}`)

	remote.err = &sheetdb.RemoteError{StatusCode: http.StatusUnauthorized}
	rec := doJSON(t, srv, http.MethodPost, "/api/transactions/submit", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Error, "Token không hợp lệ") {
		t.Errorf("error = %q, want token message", resp.Error)
	}

	// Queue must survive the failure.
	rec = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	var list queueResponse[transactionResponse]
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("queue count after failure = %d, want 1", list.Count)
	}
}

func TestQueueAndSubmitInvestment(t *testing.T) {
	remote := &stubRemote{}
	srv, _ := newTestServer(t, remote)

	rec := doJSON(t, srv, http.MethodPost, "/api/investments",
		`{"date":"2026-08-29","accountId":"INV001","type":"Buy","assetName":"VNM","quantity":"10","pricePerUnit":"25,000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	var created investmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TotalAmount != "250000" {
		t.Errorf("totalAmount = %q, want 250000", created.TotalAmount)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/investments/submit", `{"linked":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if remote.linked != 1 {
		t.Errorf("linked batches = %d, want 1", remote.linked)
	}
}

func TestQueueInvestmentValidation(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodPost, "/api/investments",
		`{"accountId":"INV001","type":"Buy","assetName":"","quantity":"10","pricePerUnit":"100"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body %s", rec.Code, rec.Body.String())
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "Vui lòng nhập tên tài sản" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{fetched: []payload.Row{
		{"Thu Nhập": "Lương"},
	}})

	rec := doJSON(t, srv, http.MethodGet, "/api/categories", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp["Thu Nhập"]) == 0 {
		t.Error("income categories should not be empty")
	}
}

func TestTokenLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodGet, "/api/token", "")
	var resp tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Configured {
		t.Error("token should start unconfigured")
	}

	rec = doJSON(t, srv, http.MethodPut, "/api/token", `{"token":"tok-123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/token", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Configured {
		t.Error("token should be configured after put")
	}

	rec = doJSON(t, srv, http.MethodDelete, "/api/token", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, &stubRemote{})

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}
	rec = doJSON(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterEvictsStaleClients(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	rl.allow("10.0.0.1:1234")
	rl.allow("10.0.0.2:1234")

	rl.mu.Lock()
	rl.clients["10.0.0.1:1234"].lastRequest = time.Now().Add(-11 * time.Minute)
	rl.mu.Unlock()

	rl.cleanupStaleEntries()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.clients["10.0.0.1:1234"]; ok {
		t.Error("stale client entry should be evicted")
	}
	if _, ok := rl.clients["10.0.0.2:1234"]; !ok {
		t.Error("active client entry should be kept")
	}
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := newRateLimiter()
	rl.stop()
	rl.stop()
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
