package pgcache

import (
	"errors"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// newMockStore wraps a sqlmock connection as a Store, for tests that
// exercise transaction commit/rollback semantics without a live database.
func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return &Store{db: sqlx.NewDb(mockDB, "postgres")}, mock
}

func TestTransactionCommitsOnSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO belief_nodes").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.transaction(func(tx *sqlx.Tx) error {
		_, execErr := tx.Exec("INSERT INTO belief_nodes VALUES (?)", "a")
		return execErr
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO belief_nodes").WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	fnErr := errors.New("constraint violation")
	err := s.transaction(func(tx *sqlx.Tx) error {
		_, execErr := tx.Exec("INSERT INTO belief_nodes VALUES (?)", "a")
		if execErr != nil {
			return fnErr
		}
		return nil
	})
	assert.Equal(t, fnErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = s.transaction(func(_ *sqlx.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

// openTest connects to a PostgreSQL instance named by NOET_TEST_PG_* env
// vars, skipping the test when they aren't set — these tests exercise real
// SQL and are not run by default in environments without a database.
func openTest(t *testing.T) *Store {
	t.Helper()
	host := os.Getenv("NOET_TEST_PG_HOST")
	if host == "" {
		t.Skip("NOET_TEST_PG_HOST not set, skipping pgcache integration test")
	}
	cfg := Config{
		Host:     host,
		Port:     5432,
		User:     os.Getenv("NOET_TEST_PG_USER"),
		Password: os.Getenv("NOET_TEST_PG_PASSWORD"),
		DBName:   os.Getenv("NOET_TEST_PG_DBNAME"),
		SSLMode:  "disable",
	}
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCommitThenLookupKeys(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	bid := ids.New(net)
	key := ids.PathKey(net, "docs/a.md")

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, bid, event.NodeBody{Title: "A"}, key),
	})
	require.NoError(t, err)

	got, ok := s.LookupKeys([]ids.NodeKey{key})
	require.True(t, ok)
	assert.Equal(t, bid, got)
}

func TestEvalBalancedPrunesOrphans(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	a := ids.New(net)
	b := ids.New(net)

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, a, event.NodeBody{Title: "A"}),
		event.NewRelationUpdate(event.Durable, a, b, event.WeightBody{Kind: "reference"}),
	})
	require.NoError(t, err)

	balanced, err := s.EvalBalanced(net)
	require.NoError(t, err)
	assert.Empty(t, balanced.Graph().Relations)

	unbalanced, err := s.EvalUnbalanced(net)
	require.NoError(t, err)
	assert.Len(t, unbalanced.Graph().Relations, 1)

	orphanNode, ok := unbalanced.Graph().Nodes[b]
	require.True(t, ok, "eval_unbalanced must load a placeholder for a referenced node it has no data for")
	assert.True(t, orphanNode.Kinds.Has(graph.KindTrace), "the placeholder is tagged Trace, not a normal kind")
}

func TestEvalTraceWalksTraceEdgesOnly(t *testing.T) {
	s := openTest(t)
	net := ids.New(ids.Nil)
	belief := ids.New(net)
	trace := ids.New(net)
	other := ids.New(net)

	err := s.Commit(net, []event.Event{
		event.NewNodeUpdate(event.Durable, belief, event.NodeBody{Title: "Belief"}),
		event.NewNodeUpdate(event.Durable, trace, event.NodeBody{Title: "Trace"}),
		event.NewNodeUpdate(event.Durable, other, event.NodeBody{Title: "Other"}),
		event.NewRelationUpdate(event.Durable, belief, trace, event.WeightBody{Kind: string(graph.WeightTrace)}),
		event.NewRelationUpdate(event.Durable, belief, other, event.WeightBody{Kind: string(graph.WeightReference)}),
	})
	require.NoError(t, err)

	edges, err := s.EvalTrace(belief)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, trace, edges[0].Sink)
}
