// Package sql provides stream sources and stages backed by database/sql.
//
// Sources are cold: the query runs when the stream is subscribed, once
// per subscription, and rows are closed when the stream completes, fails
// or is cancelled. Rows are fetched only as fast as downstream requests
// them.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/lguimbarda/min-streams/errors"
	"github.com/lguimbarda/min-streams/streams"
	"github.com/lguimbarda/min-streams/streams/rs"
)

// Scanner converts the current row into a value.
type Scanner[T any] func(*sql.Rows) (T, error)

// Query emits one value per row returned by query. A scan error fails the
// stream. ctx bounds every subscription.
func Query[T any](ctx context.Context, db *sql.DB, query string, scan Scanner[T], args ...any) streams.PublisherBuilder[T] {
	return streams.FromPublisher(rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[T, error] {
		return rowsSeq(ctx, db, query, scan, args)
	}))
}

func rowsSeq[T any](ctx context.Context, db *sql.DB, query string, scan Scanner[T], args []any) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(zero, errors.Wrapf(err, "query %q", query))
			return
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scan(rows)
			if err != nil {
				yield(zero, errors.Wrap(err, "scan row"))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, errors.Wrap(err, "iterate rows"))
		}
	}
}

// QueryRow emits the single value scanned from the first row of query.
// No rows fails the stream with sql.ErrNoRows.
func QueryRow[T any](ctx context.Context, db *sql.DB, query string, scan func(*sql.Row) (T, error), args ...any) streams.PublisherBuilder[T] {
	return single(ctx, func(ctx context.Context) (T, error) {
		return scan(db.QueryRowContext(ctx, query, args...))
	})
}

// ExecResult is the outcome of one statement.
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

func execResult(res sql.Result) ExecResult {
	lastID, _ := res.LastInsertId()
	affected, _ := res.RowsAffected()
	return ExecResult{LastInsertID: lastID, RowsAffected: affected}
}

// Exec emits the result of executing query once.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) streams.PublisherBuilder[ExecResult] {
	return single(ctx, func(ctx context.Context) (ExecResult, error) {
		res, err := db.ExecContext(ctx, query, args...)
		if err != nil {
			return ExecResult{}, errors.Wrapf(err, "exec %q", query)
		}
		return execResult(res), nil
	})
}

// ExecMany executes query once per element, with arguments from bind, and
// emits each result. The first failing statement fails the stream.
func ExecMany[T any](ctx context.Context, db *sql.DB, query string, bind func(T) []any) streams.ProcessorBuilder[T, ExecResult] {
	return streams.Mapping(func(v T) (ExecResult, error) {
		res, err := db.ExecContext(ctx, query, bind(v)...)
		if err != nil {
			return ExecResult{}, errors.Wrapf(err, "exec %q", query)
		}
		return execResult(res), nil
	})
}

// Transaction runs fn inside a transaction when subscribed and emits its
// result. The transaction is rolled back if fn fails and committed
// otherwise.
func Transaction[T any](ctx context.Context, db *sql.DB, fn func(*sql.Tx) (T, error)) streams.PublisherBuilder[T] {
	return single(ctx, func(ctx context.Context) (T, error) {
		var zero T
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return zero, errors.Wrap(err, "begin transaction")
		}
		v, err := fn(tx)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return zero, errors.WithSecondaryError(err, rbErr)
			}
			return zero, err
		}
		if err := tx.Commit(); err != nil {
			return zero, errors.Wrap(err, "commit transaction")
		}
		return v, nil
	})
}

// QueryStrings emits each row as its columns formatted as strings. NULL
// becomes "".
func QueryStrings(ctx context.Context, db *sql.DB, query string, args ...any) streams.PublisherBuilder[[]string] {
	return Query(ctx, db, query, func(rows *sql.Rows) ([]string, error) {
		values, err := scanAny(rows)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(values))
		for i, v := range values {
			switch val := v.(type) {
			case nil:
			case []byte:
				out[i] = string(val)
			default:
				out[i] = fmt.Sprint(val)
			}
		}
		return out, nil
	}, args...)
}

// QueryMaps emits each row as a map from column name to value.
func QueryMaps(ctx context.Context, db *sql.DB, query string, args ...any) streams.PublisherBuilder[map[string]any] {
	return Query(ctx, db, query, func(rows *sql.Rows) (map[string]any, error) {
		cols, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		values, err := scanAny(rows)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(cols))
		for i, col := range cols {
			out[col] = values[i]
		}
		return out, nil
	}, args...)
}

func scanAny(rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

// single emits the value produced by fn, called once per subscription.
func single[T any](ctx context.Context, fn func(context.Context) (T, error)) streams.PublisherBuilder[T] {
	return streams.FromPublisher(rs.FromSeq2(ctx, func(ctx context.Context) iter.Seq2[T, error] {
		return func(yield func(T, error) bool) {
			yield(fn(ctx))
		}
	}))
}
