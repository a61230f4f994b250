// Package submit drives the "flush queue to remote" workflow: build one
// payload per queued item, push the whole batch in a single call, then
// clear what was submitted. On any failure the queue is left fully intact
// for a manual retry.
package submit

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
	"github.com/samhvw8/finance-tracking/internal/queue"
)

var (
	// ErrEmptyQueue is informational: there was nothing to submit and no
	// network call was made.
	ErrEmptyQueue = errors.New("nothing to submit")

	// ErrInFlight reports that a submission for this queue is already
	// outstanding; the second request is a no-op.
	ErrInFlight = errors.New("submission already in flight")
)

type Result struct {
	Submitted int
}

type BatchCreator interface {
	CreateBatch(ctx context.Context, rows []payload.Row, sheet string) error
}

type LinkedBatchCreator interface {
	BatchCreator
	CreateLinkedBatch(ctx context.Context, investments, ledger []payload.Row, investmentSheet, ledgerSheet string) error
}

// Submitter flushes the plain-transaction queue to the main ledger sheet.
type Submitter struct {
	queue    *queue.Manager[core.Transaction]
	remote   BatchCreator
	sheet    string
	logger   *log.Logger
	inFlight atomic.Bool
}

func NewSubmitter(q *queue.Manager[core.Transaction], remote BatchCreator, sheet string, logger *log.Logger) *Submitter {
	return &Submitter{queue: q, remote: remote, sheet: sheet, logger: logger}
}

func (s *Submitter) Submit(ctx context.Context) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer s.inFlight.Store(false)

	// Snapshot: items queued while the call is outstanding are not part
	// of this batch and stay queued for the next flush.
	items := s.queue.Items()
	if len(items) == 0 {
		return Result{}, ErrEmptyQueue
	}

	rows := make([]payload.Row, len(items))
	ids := make([]int64, len(items))
	for i, t := range items {
		rows[i] = payload.Transaction(t)
		ids[i] = t.ID
	}

	if err := s.remote.CreateBatch(ctx, rows, s.sheet); err != nil {
		s.logger.ErrorContext(ctx, "Batch submission failed, queue retained",
			"error", err, "count", len(items))
		return Result{}, err
	}

	s.queue.RemoveBatch(ctx, ids)
	s.logger.InfoContext(ctx, "Batch submitted", "count", len(items), "sheet", s.sheet)
	return Result{Submitted: len(items)}, nil
}

// InvestmentSubmitter flushes the investment queue, optionally writing a
// linked cash-movement entry to the main ledger for every item.
type InvestmentSubmitter struct {
	queue       *queue.Manager[core.InvestmentTransaction]
	remote      LinkedBatchCreator
	sheet       string
	ledgerSheet string
	logger      *log.Logger
	inFlight    atomic.Bool
}

func NewInvestmentSubmitter(q *queue.Manager[core.InvestmentTransaction], remote LinkedBatchCreator, sheet, ledgerSheet string, logger *log.Logger) *InvestmentSubmitter {
	return &InvestmentSubmitter{queue: q, remote: remote, sheet: sheet, ledgerSheet: ledgerSheet, logger: logger}
}

func (s *InvestmentSubmitter) Submit(ctx context.Context, withLinked bool) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, ErrInFlight
	}
	defer s.inFlight.Store(false)

	items := s.queue.Items()
	if len(items) == 0 {
		return Result{}, ErrEmptyQueue
	}

	rows := make([]payload.Row, len(items))
	ids := make([]int64, len(items))
	for i, t := range items {
		rows[i] = payload.Investment(t)
		ids[i] = t.ID
	}

	var err error
	if withLinked {
		ledger := make([]payload.Row, len(items))
		for i, t := range items {
			ledger[i] = payload.Linked(t)
		}
		err = s.remote.CreateLinkedBatch(ctx, rows, ledger, s.sheet, s.ledgerSheet)
	} else {
		err = s.remote.CreateBatch(ctx, rows, s.sheet)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Investment batch submission failed, queue retained",
			"error", err, "count", len(items), "linked", withLinked)
		return Result{}, err
	}

	s.queue.RemoveBatch(ctx, ids)
	s.logger.InfoContext(ctx, "Investment batch submitted",
		"count", len(items), "linked", withLinked)
	return Result{Submitted: len(items)}, nil
}
