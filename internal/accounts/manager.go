// Package accounts maintains the investment account list, cached locally
// so the form works before the remote sheet is reachable.
package accounts

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
	"github.com/samhvw8/finance-tracking/internal/store"
)

type Fetcher interface {
	FetchAll(ctx context.Context, sheet string) ([]payload.Row, error)
}

type Manager struct {
	mu       sync.RWMutex
	accounts []core.InvestmentAccount
	store    *store.Store // nil in memory-only mode
	remote   Fetcher
	sheet    string
	logger   *log.Logger
	sf       singleflight.Group
}

func NewManager(s *store.Store, remote Fetcher, sheet string, logger *log.Logger) *Manager {
	return &Manager{store: s, remote: remote, sheet: sheet, logger: logger}
}

// Initialize loads the account list. A populated cache serves
// immediately and the remote copy is only consulted by a later Refresh;
// otherwise the remote sheet is fetched, falling back to the default
// account when that fails too.
func (m *Manager) Initialize(ctx context.Context) {
	if m.store != nil {
		cached, err := m.store.InvestmentAccounts(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "Account cache unreadable", "error", err)
		} else if len(cached) > 0 {
			m.set(cached)
			m.logger.InfoContext(ctx, "Investment accounts loaded from cache", "count", len(cached))
			return
		}
	}

	if err := m.Refresh(ctx); err != nil {
		m.logger.WarnContext(ctx, "Account fetch failed, using default account", "error", err)
		m.set(DefaultAccounts())
	}
}

// Refresh re-fetches the account sheet and rewrites the cache.
// Concurrent refreshes collapse into one remote fetch. An empty sheet
// yields the default account so selection never dead-ends.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		rows, err := m.remote.FetchAll(ctx, m.sheet)
		if err != nil {
			return nil, err
		}

		accounts := ParseRows(rows)
		if len(accounts) == 0 {
			accounts = DefaultAccounts()
		}
		m.set(accounts)

		if m.store != nil {
			if err := m.store.SaveInvestmentAccounts(ctx, accounts); err != nil {
				m.logger.WarnContext(ctx, "Failed to cache investment accounts", "error", err)
			}
		}

		m.logger.InfoContext(ctx, "Investment accounts refreshed from remote", "count", len(accounts))
		return nil, nil
	})
	return err
}

// Accounts returns the current account list.
func (m *Manager) Accounts() []core.InvestmentAccount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.accounts) == 0 {
		return DefaultAccounts()
	}
	out := make([]core.InvestmentAccount, len(m.accounts))
	copy(out, m.accounts)
	return out
}

// ByID returns the account with the given id.
func (m *Manager) ByID(id string) (core.InvestmentAccount, bool) {
	for _, a := range m.Accounts() {
		if a.ID == id {
			return a, true
		}
	}
	return core.InvestmentAccount{}, false
}

func (m *Manager) set(accounts []core.InvestmentAccount) {
	m.mu.Lock()
	m.accounts = accounts
	m.mu.Unlock()
}

// ParseRows turns account-sheet rows into accounts, keeping the first
// row seen for each id. A row without a name reuses its id as the name.
func ParseRows(rows []payload.Row) []core.InvestmentAccount {
	seen := make(map[string]struct{})
	var accounts []core.InvestmentAccount
	for _, row := range rows {
		id := strings.TrimSpace(row["Account ID"])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(row["Account Name"])
		if name == "" {
			name = id
		}
		accounts = append(accounts, core.InvestmentAccount{
			ID:   id,
			Name: name,
			Type: strings.TrimSpace(row["Type"]),
		})
	}
	return accounts
}

// DefaultAccounts is the fallback used when neither the cache nor the
// remote sheet yields any account.
func DefaultAccounts() []core.InvestmentAccount {
	return []core.InvestmentAccount{{ID: "INV001", Name: "INV001", Type: "Default"}}
}
