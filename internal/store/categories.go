package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/samhvw8/finance-tracking/internal/core"
)

// The category taxonomy is cached as a single blob keyed by a fixed id,
// mirroring how the remote setup sheet is fetched in one piece.
const categoriesKey = "categories"

// SaveCategories replaces the cached taxonomy.
func (s *Store) SaveCategories(ctx context.Context, cats core.Categories) error {
	data, err := json.Marshal(cats)
	if err != nil {
		return storageErr("marshal categories", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO categories (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		categoriesKey, string(data), time.Now().UTC().Format(time.RFC3339))
	return storageErr("save categories", err)
}

// Categories returns the cached taxonomy, or ErrNotFound when the cache
// has never been populated.
func (s *Store) Categories(ctx context.Context) (core.Categories, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM categories WHERE id = ?`, categoriesKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get categories", err)
	}

	var cats core.Categories
	if err := json.Unmarshal([]byte(data), &cats); err != nil {
		return nil, storageErr("unmarshal categories", err)
	}
	return cats, nil
}

// SaveInvestmentAccounts replaces the cached account list in one transaction.
func (s *Store) SaveInvestmentAccounts(ctx context.Context, accounts []core.InvestmentAccount) error {
	return s.inTx("save investment accounts", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM investment_accounts`); err != nil {
			return err
		}
		for _, a := range accounts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO investment_accounts (id, name, type) VALUES (?, ?, ?)`,
				a.ID, a.Name, a.Type); err != nil {
				return err
			}
		}
		return nil
	})
}

// InvestmentAccounts returns all cached accounts.
func (s *Store) InvestmentAccounts(ctx context.Context) ([]core.InvestmentAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, type FROM investment_accounts ORDER BY id`)
	if err != nil {
		return nil, storageErr("get investment accounts", err)
	}
	defer rows.Close()

	var accounts []core.InvestmentAccount
	for rows.Next() {
		var a core.InvestmentAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Type); err != nil {
			return nil, storageErr("scan investment account", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, storageErr("iterate investment accounts", rows.Err())
}
