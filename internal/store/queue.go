package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samhvw8/finance-tracking/internal/core"
)

// Queue collections. Each row stores the full transaction shape with the
// date serialized as ISO-8601; order is recovered from the id, which is
// assigned from the creation timestamp.

// PutQueuedTransaction upserts one queued plain transaction.
func (s *Store) PutQueuedTransaction(ctx context.Context, t core.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions_queue (id, date, type, category, name, amount, note, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date, type = excluded.type, category = excluded.category,
			name = excluded.name, amount = excluded.amount, note = excluded.note`,
		t.ID, t.Date.String(), string(t.Type), t.Category, t.Name, t.Amount, t.Note,
		time.Now().UTC().Format(time.RFC3339))
	return storageErr("put queued transaction", err)
}

// QueuedTransaction returns one queued item by id, or ErrNotFound.
func (s *Store) QueuedTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, type, category, name, amount, note
		FROM transactions_queue WHERE id = ?`, id)
	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, storageErr("get queued transaction", err)
	}
	return t, nil
}

// QueuedTransactions returns the whole plain queue in id order.
func (s *Store) QueuedTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, type, category, name, amount, note
		FROM transactions_queue ORDER BY id`)
	if err != nil {
		return nil, storageErr("get queued transactions", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, storageErr("scan queued transaction", err)
		}
		out = append(out, t)
	}
	return out, storageErr("iterate queued transactions", rows.Err())
}

// DeleteQueuedTransaction removes one queued item.
func (s *Store) DeleteQueuedTransaction(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions_queue WHERE id = ?`, id)
	return storageErr("delete queued transaction", err)
}

// ClearTransactionQueue removes every queued plain transaction.
func (s *Store) ClearTransactionQueue(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transactions_queue`)
	return storageErr("clear transaction queue", err)
}

// ReplaceTransactionQueue rewrites the collection so the persisted set
// equals the in-memory set. Runs in one transaction: all or nothing.
func (s *Store) ReplaceTransactionQueue(ctx context.Context, txs []core.Transaction) error {
	queuedAt := time.Now().UTC().Format(time.RFC3339)
	return s.inTx("replace transaction queue", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions_queue`); err != nil {
			return err
		}
		for _, t := range txs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO transactions_queue (id, date, type, category, name, amount, note, queued_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.Date.String(), string(t.Type), t.Category, t.Name, t.Amount, t.Note, queuedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanTransaction(scan func(...any) error) (core.Transaction, error) {
	var (
		t        core.Transaction
		date, ty string
	)
	if err := scan(&t.ID, &date, &ty, &t.Category, &t.Name, &t.Amount, &t.Note); err != nil {
		return core.Transaction{}, err
	}
	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = parsed
	t.Type = core.TransactionType(ty)
	return t, nil
}

// PutQueuedInvestment upserts one queued investment transaction.
func (s *Store) PutQueuedInvestment(ctx context.Context, t core.InvestmentTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investment_queue
			(id, date, account_id, account_name, type, asset_name, quantity,
			 price_per_unit, total_amount, fees, realized_pl, notes, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date, account_id = excluded.account_id,
			account_name = excluded.account_name, type = excluded.type,
			asset_name = excluded.asset_name, quantity = excluded.quantity,
			price_per_unit = excluded.price_per_unit, total_amount = excluded.total_amount,
			fees = excluded.fees, realized_pl = excluded.realized_pl, notes = excluded.notes`,
		t.ID, t.Date.String(), t.AccountID, t.AccountName, string(t.Type), t.AssetName,
		t.Quantity.String(), t.PricePerUnit.String(), t.TotalAmount.String(),
		t.Fees.String(), t.RealizedPL.String(), t.Notes,
		time.Now().UTC().Format(time.RFC3339))
	return storageErr("put queued investment", err)
}

// QueuedInvestment returns one queued investment item by id, or ErrNotFound.
func (s *Store) QueuedInvestment(ctx context.Context, id int64) (core.InvestmentTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, date, account_id, account_name, type, asset_name, quantity,
		       price_per_unit, total_amount, fees, realized_pl, notes
		FROM investment_queue WHERE id = ?`, id)
	t, err := scanInvestment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.InvestmentTransaction{}, ErrNotFound
	}
	if err != nil {
		return core.InvestmentTransaction{}, storageErr("get queued investment", err)
	}
	return t, nil
}

// QueuedInvestments returns the whole investment queue in id order.
func (s *Store) QueuedInvestments(ctx context.Context) ([]core.InvestmentTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, account_id, account_name, type, asset_name, quantity,
		       price_per_unit, total_amount, fees, realized_pl, notes
		FROM investment_queue ORDER BY id`)
	if err != nil {
		return nil, storageErr("get queued investments", err)
	}
	defer rows.Close()

	var out []core.InvestmentTransaction
	for rows.Next() {
		t, err := scanInvestment(rows.Scan)
		if err != nil {
			return nil, storageErr("scan queued investment", err)
		}
		out = append(out, t)
	}
	return out, storageErr("iterate queued investments", rows.Err())
}

// DeleteQueuedInvestment removes one queued item.
func (s *Store) DeleteQueuedInvestment(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM investment_queue WHERE id = ?`, id)
	return storageErr("delete queued investment", err)
}

// ClearInvestmentQueue removes every queued investment transaction.
func (s *Store) ClearInvestmentQueue(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM investment_queue`)
	return storageErr("clear investment queue", err)
}

// ReplaceInvestmentQueue rewrites the collection in one transaction.
func (s *Store) ReplaceInvestmentQueue(ctx context.Context, txs []core.InvestmentTransaction) error {
	queuedAt := time.Now().UTC().Format(time.RFC3339)
	return s.inTx("replace investment queue", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM investment_queue`); err != nil {
			return err
		}
		for _, t := range txs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO investment_queue
					(id, date, account_id, account_name, type, asset_name, quantity,
					 price_per_unit, total_amount, fees, realized_pl, notes, queued_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.ID, t.Date.String(), t.AccountID, t.AccountName, string(t.Type), t.AssetName,
				t.Quantity.String(), t.PricePerUnit.String(), t.TotalAmount.String(),
				t.Fees.String(), t.RealizedPL.String(), t.Notes, queuedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanInvestment(scan func(...any) error) (core.InvestmentTransaction, error) {
	var t core.InvestmentTransaction
	var date, ty, qty, price, total, fees, realized string
	if err := scan(&t.ID, &date, &t.AccountID, &t.AccountName, &ty, &t.AssetName,
		&qty, &price, &total, &fees, &realized, &t.Notes); err != nil {
		return core.InvestmentTransaction{}, err
	}

	parsed, err := core.ParseDate(date)
	if err != nil {
		return core.InvestmentTransaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = parsed
	t.Type = core.InvestmentType(ty)

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&t.Quantity, qty},
		{&t.PricePerUnit, price},
		{&t.TotalAmount, total},
		{&t.Fees, fees},
		{&t.RealizedPL, realized},
	} {
		if f.src == "" {
			continue
		}
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return core.InvestmentTransaction{}, fmt.Errorf("parse decimal %q: %w", f.src, err)
		}
		*f.dst = d
	}
	return t, nil
}
