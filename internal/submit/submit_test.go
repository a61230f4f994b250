package submit

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
	"github.com/samhvw8/finance-tracking/internal/queue"
	"github.com/samhvw8/finance-tracking/internal/sheetdb"
	"github.com/samhvw8/finance-tracking/internal/store"
)

func testLogger() *log.Logger {
	return log.New(slog.LevelError).WithComponent("submit")
}

// stubRemote records batches and fails on demand.
type stubRemote struct {
	mu          sync.Mutex
	batches     [][]payload.Row
	sheets      []string
	linkedCalls int
	err         error

	// optional gates for concurrency tests
	entered chan struct{}
	release chan struct{}
}

func (r *stubRemote) CreateBatch(ctx context.Context, rows []payload.Row, sheet string) error {
	if r.entered != nil {
		r.entered <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, rows)
	r.sheets = append(r.sheets, sheet)
	return r.err
}

func (r *stubRemote) CreateLinkedBatch(ctx context.Context, investments, ledger []payload.Row, investmentSheet, ledgerSheet string) error {
	r.mu.Lock()
	r.linkedCalls++
	r.mu.Unlock()
	if err := r.CreateBatch(ctx, investments, investmentSheet); err != nil {
		return err
	}
	return r.CreateBatch(ctx, ledger, ledgerSheet)
}

func (r *stubRemote) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func newQueueWithStore(t *testing.T) (*queue.Manager[core.Transaction], *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	m := queue.New[core.Transaction](queue.TransactionPersister{Store: s}, testLogger())
	m.Load(context.Background())
	return m, s
}

func TestSubmitSuccessClearsQueue(t *testing.T) {
	q, s := newQueueWithStore(t)
	ctx := context.Background()

	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 50000})
	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 120000})

	remote := &stubRemote{}
	sub := NewSubmitter(q, remote, sheetdb.LedgerSheet, testLogger())

	res, err := sub.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submitted != 2 {
		t.Errorf("Submitted = %d, want 2", res.Submitted)
	}
	if q.Count() != 0 {
		t.Errorf("queue count = %d, want 0", q.Count())
	}

	// No stale records in the durable store either.
	persisted, err := s.QueuedTransactions(ctx)
	if err != nil {
		t.Fatalf("QueuedTransactions: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("persisted = %v, want empty", persisted)
	}

	if remote.batchCount() != 1 {
		t.Fatalf("batches = %d, want 1", remote.batchCount())
	}
	if len(remote.batches[0]) != 2 || remote.sheets[0] != sheetdb.LedgerSheet {
		t.Errorf("batch = %v on %q", remote.batches[0], remote.sheets[0])
	}
}

func TestSubmitEmptyQueueSkipsNetwork(t *testing.T) {
	q, _ := newQueueWithStore(t)
	remote := &stubRemote{}
	sub := NewSubmitter(q, remote, sheetdb.LedgerSheet, testLogger())

	_, err := sub.Submit(context.Background())
	if !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("Submit = %v, want ErrEmptyQueue", err)
	}
	if remote.batchCount() != 0 {
		t.Errorf("network called %d times on empty queue", remote.batchCount())
	}
}

func TestSubmitFailureKeepsQueue(t *testing.T) {
	q, _ := newQueueWithStore(t)
	ctx := context.Background()

	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 50000})

	remote := &stubRemote{err: &sheetdb.RemoteError{StatusCode: 401}}
	sub := NewSubmitter(q, remote, sheetdb.LedgerSheet, testLogger())

	_, err := sub.Submit(ctx)
	if err == nil {
		t.Fatal("want error")
	}

	// The surfaced error is the invalid-credential variant.
	var remoteErr *sheetdb.RemoteError
	if !errors.As(err, &remoteErr) || !remoteErr.InvalidCredential() {
		t.Errorf("error = %v, want invalid-credential RemoteError", err)
	}

	if q.Count() != 1 {
		t.Errorf("queue count = %d, want 1 (retained for retry)", q.Count())
	}
}

func TestSubmitInFlightGuard(t *testing.T) {
	q, _ := newQueueWithStore(t)
	ctx := context.Background()

	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 50000})

	remote := &stubRemote{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sub := NewSubmitter(q, remote, sheetdb.LedgerSheet, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := sub.Submit(ctx)
		done <- err
	}()

	// Wait until the first submission is inside the remote call, then
	// try again: the guard must reject without touching the network.
	<-remote.entered
	_, err := sub.Submit(ctx)
	if !errors.Is(err, ErrInFlight) {
		t.Errorf("second Submit = %v, want ErrInFlight", err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	if remote.batchCount() != 1 {
		t.Errorf("CreateBatch observed %d times, want exactly 1", remote.batchCount())
	}

	// Guard resets once the call settles.
	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 1000})
	if _, err := sub.Submit(ctx); err != nil {
		t.Errorf("Submit after settle: %v", err)
	}
}

func TestSubmitKeepsItemsQueuedMidFlight(t *testing.T) {
	q, _ := newQueueWithStore(t)
	ctx := context.Background()

	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 50000})

	remote := &stubRemote{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	sub := NewSubmitter(q, remote, sheetdb.LedgerSheet, testLogger())

	done := make(chan Result, 1)
	go func() {
		res, _ := sub.Submit(ctx)
		done <- res
	}()

	<-remote.entered
	// Arrives while the batch is on the wire; belongs to the next flush.
	q.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Income, Amount: 99})
	close(remote.release)

	res := <-done
	if res.Submitted != 1 {
		t.Errorf("Submitted = %d, want 1", res.Submitted)
	}
	if q.Count() != 1 {
		t.Errorf("late arrival lost: count = %d, want 1", q.Count())
	}
}

func newInvestmentQueue(t *testing.T) *queue.Manager[core.InvestmentTransaction] {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	m := queue.New[core.InvestmentTransaction](queue.InvestmentPersister{Store: s}, testLogger())
	m.Load(context.Background())
	return m
}

func investmentFixture() core.InvestmentTransaction {
	tx := core.InvestmentTransaction{
		Date:         core.NewDate(2026, 8, 30),
		AccountID:    "INV001",
		AccountName:  "Cổ phiếu Việt Nam",
		Type:         core.Buy,
		AssetName:    "VNM",
		Quantity:     decimal.RequireFromString("10"),
		PricePerUnit: decimal.RequireFromString("25000"),
	}
	tx.Recalculate()
	return tx
}

func TestInvestmentSubmitWithoutLinked(t *testing.T) {
	q := newInvestmentQueue(t)
	ctx := context.Background()
	q.Add(ctx, investmentFixture())

	remote := &stubRemote{}
	sub := NewInvestmentSubmitter(q, remote, sheetdb.InvestmentSheet, sheetdb.LedgerSheet, testLogger())

	res, err := sub.Submit(ctx, false)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submitted != 1 || q.Count() != 0 {
		t.Errorf("Submitted = %d, count = %d", res.Submitted, q.Count())
	}
	if remote.linkedCalls != 0 {
		t.Errorf("linkedCalls = %d, want 0", remote.linkedCalls)
	}
	if remote.sheets[0] != sheetdb.InvestmentSheet {
		t.Errorf("sheet = %q", remote.sheets[0])
	}
}

func TestInvestmentSubmitWithLinked(t *testing.T) {
	q := newInvestmentQueue(t)
	ctx := context.Background()
	q.Add(ctx, investmentFixture())

	remote := &stubRemote{}
	sub := NewInvestmentSubmitter(q, remote, sheetdb.InvestmentSheet, sheetdb.LedgerSheet, testLogger())

	res, err := sub.Submit(ctx, true)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submitted != 1 || q.Count() != 0 {
		t.Errorf("Submitted = %d, count = %d", res.Submitted, q.Count())
	}
	if remote.linkedCalls != 1 {
		t.Fatalf("linkedCalls = %d, want 1", remote.linkedCalls)
	}

	// Investment rows first, then the linked ledger rows.
	if len(remote.sheets) != 2 ||
		remote.sheets[0] != sheetdb.InvestmentSheet || remote.sheets[1] != sheetdb.LedgerSheet {
		t.Errorf("sheets = %v", remote.sheets)
	}
	if got := remote.batches[1][0]["Tên"]; got != "Mua VNM" {
		t.Errorf("linked row name = %q, want Mua VNM", got)
	}
}

// Overridden sheet names must reach the remote on the linked path too,
// not just the plain batch.
func TestInvestmentSubmitLinkedUsesConfiguredSheets(t *testing.T) {
	q := newInvestmentQueue(t)
	ctx := context.Background()
	q.Add(ctx, investmentFixture())

	remote := &stubRemote{}
	sub := NewInvestmentSubmitter(q, remote, "Custom Investments", "Custom Ledger", testLogger())

	if _, err := sub.Submit(ctx, true); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(remote.sheets) != 2 ||
		remote.sheets[0] != "Custom Investments" || remote.sheets[1] != "Custom Ledger" {
		t.Errorf("sheets = %v, want the configured names", remote.sheets)
	}
}

func TestInvestmentSubmitFailureKeepsQueue(t *testing.T) {
	q := newInvestmentQueue(t)
	ctx := context.Background()
	q.Add(ctx, investmentFixture())

	remote := &stubRemote{err: &sheetdb.TransportError{Err: errors.New("offline")}}
	sub := NewInvestmentSubmitter(q, remote, sheetdb.InvestmentSheet, sheetdb.LedgerSheet, testLogger())

	if _, err := sub.Submit(ctx, false); err == nil {
		t.Fatal("want error")
	}
	if q.Count() != 1 {
		t.Errorf("count = %d, want 1", q.Count())
	}
}

// Submissions on different queues are independent; only same-queue
// concurrency is guarded.
func TestGuardIsPerQueue(t *testing.T) {
	q1, _ := newQueueWithStore(t)
	q2 := newInvestmentQueue(t)
	ctx := context.Background()

	q1.Add(ctx, core.Transaction{Date: core.NewDate(2026, 8, 30), Type: core.Expense, Amount: 1})
	q2.Add(ctx, investmentFixture())

	remote := &stubRemote{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	plain := NewSubmitter(q1, remote, sheetdb.LedgerSheet, testLogger())

	done := make(chan struct{})
	go func() {
		plain.Submit(ctx)
		close(done)
	}()
	<-remote.entered

	inv := NewInvestmentSubmitter(q2, &stubRemote{}, sheetdb.InvestmentSheet, sheetdb.LedgerSheet, testLogger())
	if _, err := inv.Submit(ctx, false); err != nil {
		t.Errorf("investment Submit during plain submit: %v", err)
	}

	close(remote.release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("plain submit did not settle")
	}
}
