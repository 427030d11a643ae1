package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const (
	TableProfiles     = "profiles"
	TablePortfolios   = "portfolios"
	TablePositions    = "positions"
	TableTransactions = "transactions"
	TableMarkets      = "markets"
)

var ErrEmptyFilter = errors.New("delete requires at least one filter")

// Row is one record as the store sees it: snake_case column -> value.
type Row map[string]any

// Filter holds equality conditions that are ANDed together.
type Filter map[string]any

type Order struct {
	Column string
	Desc   bool
}

// Gateway is the row-level interface to the remote store. Implementations
// must be safe for concurrent use.
type Gateway interface {
	Insert(ctx context.Context, table string, rows ...Row) error
	Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error)
	DeleteWhere(ctx context.Context, table string, filter Filter) error
}

// Transactor is implemented by gateways that can run a group of calls
// atomically. fn receives a Gateway bound to the transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(Gateway) error) error
}

// UpstreamError is returned when the store answers with a non-success status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("store status %d: %s", e.Status, e.Body)
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// columnsOf returns the union of keys across rows so a batch can be written
// with one column list; rows missing a key get NULL.
func columnsOf(rows []Row) []string {
	union := Row{}
	for _, r := range rows {
		for k := range r {
			union[k] = nil
		}
	}
	return sortedKeys(union)
}
