package game

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"finplay/internal/store"
)

type call struct {
	op    string
	table string
	rows  int
}

// memStore is an in-memory Gateway that records every call.
type memStore struct {
	mu     sync.Mutex
	tables map[string][]store.Row
	calls  []call
	// failOn makes the first matching "op:table" call return errBoom.
	failOn string
}

var errBoom = errors.New("boom")

func newMemStore() *memStore {
	return &memStore{tables: map[string][]store.Row{}}
}

func (m *memStore) Insert(_ context.Context, table string, rows ...store.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{op: "insert", table: table, rows: len(rows)})
	if m.failOn == "insert:"+table {
		return errBoom
	}
	for _, r := range rows {
		cp := make(store.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		m.tables[table] = append(m.tables[table], cp)
	}
	return nil
}

func (m *memStore) Select(_ context.Context, table string, filter store.Filter, order ...store.Order) ([]store.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{op: "select", table: table})
	if m.failOn == "select:"+table {
		return nil, errBoom
	}
	var out []store.Row
	for _, r := range m.tables[table] {
		if matches(r, filter) {
			out = append(out, r)
		}
	}
	if len(order) > 0 {
		o := order[0]
		sort.SliceStable(out, func(i, j int) bool {
			a, _ := out[i][o.Column].(time.Time)
			b, _ := out[j][o.Column].(time.Time)
			if o.Desc {
				return a.After(b)
			}
			return a.Before(b)
		})
	}
	return out, nil
}

func (m *memStore) DeleteWhere(_ context.Context, table string, filter store.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{op: "delete", table: table})
	if m.failOn == "delete:"+table {
		return errBoom
	}
	kept := m.tables[table][:0]
	for _, r := range m.tables[table] {
		if !matches(r, filter) {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
	return nil
}

func (m *memStore) count(op, table string) int {
	n := 0
	for _, c := range m.calls {
		if c.op == op && c.table == table {
			n++
		}
	}
	return n
}

func (m *memStore) snapshot() map[string][]store.Row {
	cp := make(map[string][]store.Row, len(m.tables))
	for t, rows := range m.tables {
		cp[t] = append([]store.Row(nil), rows...)
	}
	return cp
}

func matches(r store.Row, filter store.Filter) bool {
	for k, v := range filter {
		if r[k] != v {
			return false
		}
	}
	return true
}

// txStore adds all-or-nothing semantics on top of memStore.
type txStore struct {
	*memStore
}

func (t txStore) InTx(_ context.Context, fn func(store.Gateway) error) error {
	t.mu.Lock()
	before := t.snapshot()
	t.mu.Unlock()
	if err := fn(t.memStore); err != nil {
		t.mu.Lock()
		t.tables = before
		t.mu.Unlock()
		return err
	}
	return nil
}
