package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Pool is the subset of *pgxpool.Pool the Postgres gateway needs.
type Pool interface {
	querier
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Postgres is a Gateway over a direct database connection. Unlike REST it
// implements Transactor, so a full save commits or rolls back as one unit.
type Postgres struct {
	db  Pool
	log *slog.Logger
}

func NewPostgres(db Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, log: logger}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	p.log.Info("store schema applied")
	return nil
}

func (p *Postgres) Insert(ctx context.Context, table string, rows ...Row) error {
	return sqlGateway{q: p.db}.Insert(ctx, table, rows...)
}

func (p *Postgres) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	return sqlGateway{q: p.db}.Select(ctx, table, filter, order...)
}

func (p *Postgres) DeleteWhere(ctx context.Context, table string, filter Filter) error {
	return sqlGateway{q: p.db}.DeleteWhere(ctx, table, filter)
}

func (p *Postgres) InTx(ctx context.Context, fn func(Gateway) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(sqlGateway{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type sqlGateway struct {
	q querier
}

func (g sqlGateway) Insert(ctx context.Context, table string, rows ...Row) error {
	if len(rows) == 0 {
		return nil
	}
	cols := columnsOf(rows)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}

	args := make([]any, 0, len(rows)*len(cols))
	tuples := make([]string, 0, len(rows))
	for _, r := range rows {
		ph := make([]string, len(cols))
		for i, c := range cols {
			args = append(args, r[c])
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		pgx.Identifier{table}.Sanitize(), strings.Join(quoted, ", "), strings.Join(tuples, ", "))
	if _, err := g.q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (g sqlGateway) Select(ctx context.Context, table string, filter Filter, order ...Order) ([]Row, error) {
	where, args := whereClause(filter)
	sql := "SELECT * FROM " + pgx.Identifier{table}.Sanitize() + where
	if len(order) > 0 {
		parts := make([]string, 0, len(order))
		for _, o := range order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, pgx.Identifier{o.Column}.Sanitize()+" "+dir)
		}
		sql += " ORDER BY " + strings.Join(parts, ", ")
	}

	rows, err := g.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		r := make(Row, len(vals))
		for i, fd := range rows.FieldDescriptions() {
			r[fd.Name] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g sqlGateway) DeleteWhere(ctx context.Context, table string, filter Filter) error {
	if len(filter) == 0 {
		return ErrEmptyFilter
	}
	where, args := whereClause(filter)
	if _, err := g.q.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()+where, args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func whereClause(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(filter))
	args := make([]any, 0, len(filter))
	for _, col := range sortedKeys(filter) {
		if filter[col] == nil {
			conds = append(conds, pgx.Identifier{col}.Sanitize()+" IS NULL")
			continue
		}
		args = append(args, filter[col])
		conds = append(conds, fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
