package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telegram-stats-bot/internal/analyze"
	"github.com/telegram-stats-bot/internal/storage"
)

// fakeRows implements storage.RowScanner over canned (text, created_at) rows
type fakeRows struct {
	rows [][]any
	idx  int
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
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

func (r *fakeRows) Err() error   { return nil }
func (r *fakeRows) Close() error { return nil }

// fakeDB implements storage.DB, recording query arguments
type fakeDB struct {
	rows     [][]any
	queryErr error
	pingErr  error
	lastArgs []any
}

func (db *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (storage.RowScanner, error) {
	db.lastArgs = args
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	return &fakeRows{rows: db.rows}, nil
}

func (db *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (db *fakeDB) PingContext(ctx context.Context) error { return db.pingErr }

func newTestServer(t *testing.T, db *fakeDB) *Server {
	t.Helper()
	storageClient := storage.NewClientWithDB(db, 5, zerolog.Nop())
	analyzeClient := analyze.NewClient("test-key", "gemini-2.0-flash", 30, zerolog.Nop())
	return NewServer(storageClient, analyzeClient, zerolog.Nop())
}

func postAnalyze(t *testing.T, s *Server, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthOK(t *testing.T) {
	s := newTestServer(t, &fakeDB{})

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	resp, err := s.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthDatabaseUnavailable(t *testing.T) {
	s := newTestServer(t, &fakeDB{pingErr: errors.New("connection refused")})

	req, err := http.NewRequest(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	resp, err := s.app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "database_unavailable", decodeError(t, resp).Error)
}

func TestAnalyzeRejectsInvalidJSON(t *testing.T) {
	s := newTestServer(t, &fakeDB{})

	resp := postAnalyze(t, s, "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", decodeError(t, resp).Error)
}

func TestAnalyzeRequiresUsername(t *testing.T) {
	s := newTestServer(t, &fakeDB{})

	resp := postAnalyze(t, s, `{"limit":10}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_request", decodeError(t, resp).Error)
}

func TestAnalyzeRejectsNegativeLimit(t *testing.T) {
	s := newTestServer(t, &fakeDB{})

	resp := postAnalyze(t, s, `{"username":"alice","limit":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeNotEnoughMessages(t *testing.T) {
	db := &fakeDB{rows: [][]any{
		{"привет", time.Now()},
		{"как дела", time.Now()},
	}}
	s := newTestServer(t, db)

	resp := postAnalyze(t, s, `{"username":"alice"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "not_enough_messages", decodeError(t, resp).Error)
}

func TestAnalyzeDefaultAndMaxLimit(t *testing.T) {
	db := &fakeDB{}
	s := newTestServer(t, db)

	postAnalyze(t, s, `{"username":"alice"}`)
	require.Len(t, db.lastArgs, 2)
	assert.Equal(t, defaultAnalyzeLimit, db.lastArgs[1])

	postAnalyze(t, s, `{"username":"alice","limit":500}`)
	assert.Equal(t, maxAnalyzeLimit, db.lastArgs[1])
}

func TestAnalyzeStorageFault(t *testing.T) {
	db := &fakeDB{queryErr: errors.New("connection reset")}
	s := newTestServer(t, db)

	resp := postAnalyze(t, s, `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "analysis_failed", decodeError(t, resp).Error)
}
