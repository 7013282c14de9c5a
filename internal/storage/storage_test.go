package storage

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// capturedQuery records one query the client issued against the fake
type capturedQuery struct {
	query string
	args  []any
}

// fakeRows implements RowScanner over canned row values
type fakeRows struct {
	rows    [][]any
	idx     int
	rowsErr error
	scanErr error
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}

	row := r.rows[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan expects %d destinations, got %d", len(row), len(dest))
	}

	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *int:
			*p = row[i].(int)
		case *string:
			*p = row[i].(string)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan destination %T", d)
		}
	}
	return nil
}

func (r *fakeRows) Err() error   { return r.rowsErr }
func (r *fakeRows) Close() error { return nil }

type queuedResult struct {
	rows *fakeRows
	err  error
}

// fakeDB implements DB, serving queued results and recording every call
type fakeDB struct {
	queries []capturedQuery
	execs   []capturedQuery

	queryResults []queuedResult
	execErrs     []error
	pingErr      error
}

func (db *fakeDB) queueRows(rows [][]any) {
	db.queryResults = append(db.queryResults, queuedResult{rows: &fakeRows{rows: rows}})
}

func (db *fakeDB) queueQueryErr(err error) {
	db.queryResults = append(db.queryResults, queuedResult{err: err})
}

func (db *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error) {
	db.queries = append(db.queries, capturedQuery{query: query, args: args})
	if len(db.queryResults) == 0 {
		return &fakeRows{}, nil
	}

	next := db.queryResults[0]
	db.queryResults = db.queryResults[1:]
	if next.err != nil {
		return nil, next.err
	}
	return next.rows, nil
}

func (db *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.execs = append(db.execs, capturedQuery{query: query, args: args})
	if len(db.execErrs) == 0 {
		return nil, nil
	}

	err := db.execErrs[0]
	db.execErrs = db.execErrs[1:]
	return nil, err
}

func (db *fakeDB) PingContext(ctx context.Context) error { return db.pingErr }

func newTestClient(t *testing.T, db *fakeDB) *Client {
	t.Helper()
	return NewClientWithDB(db, 5, zerolog.Nop())
}
