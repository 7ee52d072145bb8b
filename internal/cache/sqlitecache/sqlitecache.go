// Package sqlitecache backs cache.BeliefSource with a row-oriented
// modernc.org/sqlite store — a pure-Go, cgo-free SQL backend, grounded on
// the teacher's db.Transaction panic-safe commit/rollback pattern
// (internal/db/connection.go) and jmoiron/sqlx's Executor-over-*sqlx.DB
// convention from internal/repository/executor.go.
package sqlitecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	bid TEXT PRIMARY KEY,
	network TEXT NOT NULL,
	kinds INTEGER NOT NULL,
	schema TEXT NOT NULL,
	semantic_id TEXT,
	title TEXT,
	payload TEXT,
	version INTEGER
);
CREATE TABLE IF NOT EXISTS node_keys (
	key TEXT PRIMARY KEY,
	bid TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS relations (
	source TEXT NOT NULL,
	sink TEXT NOT NULL,
	kind TEXT NOT NULL,
	doc_paths TEXT,
	attrs TEXT,
	version INTEGER,
	network TEXT NOT NULL,
	PRIMARY KEY (source, sink, kind)
);
CREATE INDEX IF NOT EXISTS idx_nodes_network ON nodes(network);
CREATE INDEX IF NOT EXISTS idx_relations_network ON relations(network);
`

// Store is a modernc.org/sqlite-backed BeliefSource.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if needed) a sqlite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitecache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitecache: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// withTx runs fn inside a transaction, committing on success and rolling
// back (panic-safely) on error — the same shape as the teacher's
// db.Transaction helper.
func (s *Store) withTx(fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("sqlitecache: begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func keyString(k ids.NodeKey) string {
	if k.Kind == ids.KeyBid {
		return fmt.Sprintf("bid:%s", k.Bid)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Network, k.Str)
}

// LookupKeys resolves a BID from the node_keys table.
func (s *Store) LookupKeys(keys []ids.NodeKey) (ids.BID, bool) {
	for _, k := range keys {
		var bidStr string
		err := s.db.Get(&bidStr, `SELECT bid FROM node_keys WHERE key = ?`, keyString(k))
		if err == nil {
			if bid, perr := ids.ParseBID(bidStr); perr == nil {
				return bid, true
			}
		}
	}
	return ids.Nil, false
}

type nodeRow struct {
	Bid        string         `db:"bid"`
	Network    string         `db:"network"`
	Kinds      uint16         `db:"kinds"`
	Schema     string         `db:"schema"`
	SemanticID sql.NullString `db:"semantic_id"`
	Title      sql.NullString `db:"title"`
	Payload    sql.NullString `db:"payload"`
	Version    int64          `db:"version"`
}

type relationRow struct {
	Source   string         `db:"source"`
	Sink     string         `db:"sink"`
	Kind     string         `db:"kind"`
	DocPaths sql.NullString `db:"doc_paths"`
	Attrs    sql.NullString `db:"attrs"`
	Version  int64          `db:"version"`
}

func (s *Store) loadBase(network ids.BID) (*graph.BeliefBase, error) {
	base := graph.NewBeliefBase()

	var nodeRows []nodeRow
	if err := s.db.Select(&nodeRows, `SELECT * FROM nodes WHERE network = ?`, network.String()); err != nil {
		return nil, fmt.Errorf("sqlitecache: load nodes: %w", err)
	}
	for _, r := range nodeRows {
		bid, err := ids.ParseBID(r.Bid)
		if err != nil {
			continue
		}
		var payload map[string]any
		if r.Payload.Valid {
			_ = json.Unmarshal([]byte(r.Payload.String), &payload)
		}
		base.Apply(event.NewNodeUpdate(event.Durable, bid, event.NodeBody{
			Kinds: uint32(r.Kinds), Schema: r.Schema, SemanticID: r.SemanticID.String,
			Title: r.Title.String, Payload: payload, Version: r.Version,
		}))
	}

	var relRows []relationRow
	if err := s.db.Select(&relRows, `SELECT * FROM relations WHERE network = ?`, network.String()); err != nil {
		return nil, fmt.Errorf("sqlitecache: load relations: %w", err)
	}
	for _, r := range relRows {
		source, err1 := ids.ParseBID(r.Source)
		sink, err2 := ids.ParseBID(r.Sink)
		if err1 != nil || err2 != nil {
			continue
		}
		var paths []string
		if r.DocPaths.Valid {
			paths = strings.Split(r.DocPaths.String, "\x1f")
		}
		base.Apply(event.NewRelationUpdate(event.Durable, source, sink, event.WeightBody{
			Kind: r.Kind, DocPaths: paths, Version: r.Version,
		}))
	}

	return base, nil
}

// EvalUnbalanced returns network's full committed graph. Any relation
// endpoint this store has no node for is loaded as a placeholder tagged
// Trace, so the result is never orphaned (spec.md §4.6).
func (s *Store) EvalUnbalanced(network ids.BID) (*graph.BeliefBase, error) {
	full, err := s.loadBase(network)
	if err != nil {
		return nil, err
	}
	for _, orphan := range full.Graph().FindOrphanedEdges() {
		full.Apply(event.NewNodeUpdate(event.Durable, orphan, traceStubBody()))
	}
	return full, nil
}

// traceStubBody is the placeholder loaded in place of a relation endpoint
// this store has no node for: KindTrace marks that its own relation
// neighborhood was never loaded, only enough of it to keep the graph
// balanced.
func traceStubBody() event.NodeBody {
	return event.NodeBody{Kinds: uint32(graph.KindTrace), Schema: "trace-stub"}
}

// EvalBalanced returns network's graph with orphaned edges pruned.
func (s *Store) EvalBalanced(network ids.BID) (*graph.BeliefBase, error) {
	full, err := s.loadBase(network)
	if err != nil {
		return nil, err
	}
	balanced := graph.NewBeliefBase()
	flat := full.Graph()
	for _, n := range flat.Nodes {
		balanced.Apply(event.NewNodeUpdate(event.Durable, n.Bid, event.NodeBody{
			Kinds: uint32(n.Kinds), Schema: n.Schema, SemanticID: n.SemanticID,
			Title: n.Title, Payload: n.Payload, Version: n.Version,
		}))
	}
	for ref, w := range flat.Relations {
		if _, ok := flat.Nodes[ref.Source]; !ok {
			continue
		}
		if _, ok := flat.Nodes[ref.Sink]; !ok {
			continue
		}
		balanced.Apply(event.NewRelationUpdate(event.Durable, ref.Source, ref.Sink, event.WeightBody{
			Kind: string(w.Kind), DocPaths: w.DocPaths, Version: w.Version,
		}))
	}
	return balanced, nil
}

// EvalTrace looks up bid's owning network in the nodes table, loads that
// network's graph, and walks Trace-kind edges from bid, breadth-first. A
// bid with no node row yields no edges.
func (s *Store) EvalTrace(bid ids.BID) ([]graph.EdgeRef, error) {
	var network string
	if err := s.db.Get(&network, `SELECT network FROM nodes WHERE bid = ?`, bid.String()); err != nil {
		return nil, nil
	}
	net, err := ids.ParseBID(network)
	if err != nil {
		return nil, err
	}
	base, err := s.loadBase(net)
	if err != nil {
		return nil, err
	}

	var out []graph.EdgeRef
	seen := make(map[ids.BID]bool)
	queue := []ids.BID{bid}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		for _, ref := range base.OutEdges(cur) {
			if ref.Kind != graph.WeightTrace {
				continue
			}
			out = append(out, ref)
			queue = append(queue, ref.Sink)
		}
	}
	return out, nil
}

// Commit applies batch to the database inside one transaction.
func (s *Store) Commit(network ids.BID, batch []event.Event) error {
	return s.withTx(func(tx *sqlx.Tx) error {
		for _, ev := range batch {
			if err := applyEvent(tx, network, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyEvent(tx *sqlx.Tx, network ids.BID, ev event.Event) error {
	switch ev.Kind {
	case event.KindNodeUpdate:
		p := ev.NodeUpdate
		payload, _ := json.Marshal(p.Node.Payload)
		_, err := tx.Exec(`INSERT INTO nodes (bid, network, kinds, schema, semantic_id, title, payload, version)
			VALUES (?,?,?,?,?,?,?,?)
			ON CONFLICT(bid) DO UPDATE SET kinds=excluded.kinds, schema=excluded.schema,
				semantic_id=excluded.semantic_id, title=excluded.title, payload=excluded.payload,
				version=excluded.version`,
			p.Bid.String(), network.String(), p.Node.Kinds, p.Node.Schema, p.Node.SemanticID,
			p.Node.Title, string(payload), p.Node.Version)
		if err != nil {
			return fmt.Errorf("sqlitecache: upsert node: %w", err)
		}
		for _, k := range p.Keys {
			if _, err := tx.Exec(`INSERT INTO node_keys (key, bid) VALUES (?,?)
				ON CONFLICT(key) DO UPDATE SET bid=excluded.bid`, keyString(k), p.Bid.String()); err != nil {
				return fmt.Errorf("sqlitecache: upsert node_key: %w", err)
			}
		}
		return nil

	case event.KindNodesRemoved:
		for _, bid := range ev.NodesRemoved.Bids {
			if _, err := tx.Exec(`DELETE FROM nodes WHERE bid = ?`, bid.String()); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM node_keys WHERE bid = ?`, bid.String()); err != nil {
				return err
			}
		}
		return nil

	case event.KindRelationUpdate:
		p := ev.RelationUpdate
		var existing sql.NullString
		_ = tx.Get(&existing, `SELECT doc_paths FROM relations WHERE source=? AND sink=? AND kind=?`,
			p.Source.String(), p.Sink.String(), p.Weight.Kind)
		paths := mergePaths(existing.String, p.Weight.DocPaths)
		_, err := tx.Exec(`INSERT INTO relations (source, sink, kind, doc_paths, attrs, version, network)
			VALUES (?,?,?,?,?,?,?)
			ON CONFLICT(source, sink, kind) DO UPDATE SET doc_paths=excluded.doc_paths, version=excluded.version`,
			p.Source.String(), p.Sink.String(), p.Weight.Kind, paths, "", p.Weight.Version, network.String())
		return err

	case event.KindRelationsRemoved:
		for _, ref := range ev.RelationsRemoved.Edges {
			if _, err := tx.Exec(`DELETE FROM relations WHERE source=? AND sink=? AND kind=?`,
				ref.Source.String(), ref.Sink.String(), ref.WeightKind); err != nil {
				return err
			}
		}
		return nil

	case event.KindNodeRenamed:
		p := ev.NodeRenamed
		if _, err := tx.Exec(`UPDATE nodes SET bid=? WHERE bid=?`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE node_keys SET bid=? WHERE bid=?`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE relations SET source=? WHERE source=?`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE relations SET sink=? WHERE sink=?`, p.NewBid.String(), p.OldBid.String())
		return err

	default:
		return nil
	}
}

func mergePaths(existingJoined string, incoming []string) string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if existingJoined != "" {
		for _, p := range strings.Split(existingJoined, "\x1f") {
			add(p)
		}
	}
	for _, p := range incoming {
		add(p)
	}
	return strings.Join(out, "\x1f")
}

var _ cache.BeliefSource = (*Store)(nil)
