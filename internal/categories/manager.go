// Package categories maintains the category taxonomy: cached in the
// local store, sourced from the remote setup sheet, with built-in
// defaults so the form keeps working when both are unavailable.
package categories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/samhvw8/finance-tracking/internal/core"
	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
	"github.com/samhvw8/finance-tracking/internal/store"
)

// Fetcher is the slice of the remote client this manager needs.
type Fetcher interface {
	FetchAll(ctx context.Context, sheet string) ([]payload.Row, error)
}

type Manager struct {
	mu     sync.RWMutex
	cats   core.Categories
	store  *store.Store // nil in memory-only mode
	remote Fetcher
	sheet  string
	logger *log.Logger
	sf     singleflight.Group
}

func NewManager(s *store.Store, remote Fetcher, sheet string, logger *log.Logger) *Manager {
	return &Manager{store: s, remote: remote, sheet: sheet, logger: logger}
}

// Initialize loads the taxonomy: cache first, then the remote API, then
// the built-in defaults. It never fails; a missing taxonomy would make
// the whole form unusable.
func (m *Manager) Initialize(ctx context.Context) {
	if m.store != nil {
		cached, err := m.store.Categories(ctx)
		if err == nil {
			m.set(cached)
			m.logger.InfoContext(ctx, "Categories loaded from cache")
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			m.logger.WarnContext(ctx, "Category cache unreadable", "error", err)
		}
	}

	if err := m.Refresh(ctx); err != nil {
		m.logger.WarnContext(ctx, "Category fetch failed, using defaults", "error", err)
		m.set(Defaults())
	}
}

// Refresh re-fetches the taxonomy from the remote setup sheet and
// rewrites the cache. Concurrent refreshes collapse into one remote
// fetch. A cache write failure is logged and swallowed; the fresh data
// still serves the current session.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.sf.Do("refresh", func() (any, error) {
		rows, err := m.remote.FetchAll(ctx, m.sheet)
		if err != nil {
			return nil, err
		}

		cats := ParseRows(rows)
		m.set(cats)

		if m.store != nil {
			if err := m.store.SaveCategories(ctx, cats); err != nil {
				m.logger.WarnContext(ctx, "Failed to cache categories", "error", err)
			}
		}

		m.logger.InfoContext(ctx, "Categories refreshed from remote", "types", len(cats))
		return nil, nil
	})
	return err
}

// Categories returns the current taxonomy.
func (m *Manager) Categories() core.Categories {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.cats == nil {
		return Defaults()
	}
	return m.cats
}

// ByType returns the category labels for one transaction type.
func (m *Manager) ByType(t core.TransactionType) []string {
	return m.Categories()[t]
}

func (m *Manager) set(cats core.Categories) {
	m.mu.Lock()
	m.cats = cats
	m.mu.Unlock()
}

// ParseRows turns setup-sheet rows into the taxonomy. Each transaction
// type is a column; values are trimmed, deduplicated and sorted.
func ParseRows(rows []payload.Row) core.Categories {
	types := []core.TransactionType{
		core.Income, core.Expense, core.TransferToInvestment, core.WithdrawFromInvestment,
	}

	cats := make(core.Categories, len(types))
	for _, ty := range types {
		seen := make(map[string]struct{})
		var values []string
		for _, row := range rows {
			v := strings.TrimSpace(row[string(ty)])
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
		sort.Strings(values)
		cats[ty] = values
	}
	return cats
}

// Defaults is the built-in taxonomy used when neither the cache nor the
// remote sheet is reachable.
func Defaults() core.Categories {
	return core.Categories{
		core.Income:                 {"Lương", "Thưởng", "Bán Hàng", "Đầu Tư", "Khác"},
		core.Expense:                {"Ăn Uống", "Mua Sắm", "Di Chuyển", "Giải Trí", "Y Tế", "Học Tập", "Hóa Đơn", "Khác"},
		core.TransferToInvestment:   {"Chứng Khoán", "Tiền Gửi", "Vàng", "Bất Động Sản", "Khác"},
		core.WithdrawFromInvestment: {"Chứng Khoán", "Tiền Gửi", "Vàng", "Bất Động Sản", "Khác"},
	}
}
