// Package pgcache backs cache.BeliefSource with PostgreSQL, grounded on the
// teacher's internal/db.DB connection wrapper (pool sizing, Transaction
// commit/rollback helper) and internal/repository's stateless,
// Executor-parameter repository shape — adapted here to a single store
// rather than a repository-per-table split, since the belief graph's
// two tables (nodes, relations) share one commit unit.
package pgcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// Config holds the PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

const schema = `
CREATE TABLE IF NOT EXISTS belief_nodes (
	bid TEXT PRIMARY KEY,
	network TEXT NOT NULL,
	kinds INTEGER NOT NULL,
	schema TEXT NOT NULL,
	semantic_id TEXT,
	title TEXT,
	payload JSONB,
	version BIGINT
);
CREATE TABLE IF NOT EXISTS belief_node_keys (
	key TEXT PRIMARY KEY,
	bid TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS belief_relations (
	source TEXT NOT NULL,
	sink TEXT NOT NULL,
	kind TEXT NOT NULL,
	doc_paths TEXT[],
	attrs JSONB,
	version BIGINT,
	network TEXT NOT NULL,
	PRIMARY KEY (source, sink, kind)
);
CREATE INDEX IF NOT EXISTS idx_belief_nodes_network ON belief_nodes(network);
CREATE INDEX IF NOT EXISTS idx_belief_relations_network ON belief_relations(network);
`

// Store is a PostgreSQL-backed BeliefSource.
type Store struct {
	db *sqlx.DB
}

// Open connects to PostgreSQL per cfg, configures the pool, and ensures
// the schema exists.
func Open(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("pgcache: connect: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pgcache: apply schema: %w", err)
	}

	log.Printf("pgcache: connected to %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.DBName)
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// transaction runs fn inside a transaction, committing on success and
// rolling back (panic-safely) on error.
func (s *Store) transaction(fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("pgcache: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("pgcache: rollback after %v failed: %w", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgcache: commit transaction: %w", err)
	}
	return nil
}

func keyString(k ids.NodeKey) string {
	if k.Kind == ids.KeyBid {
		return fmt.Sprintf("bid:%s", k.Bid)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, k.Network, k.Str)
}

// LookupKeys resolves a BID from belief_node_keys.
func (s *Store) LookupKeys(keys []ids.NodeKey) (ids.BID, bool) {
	ctx := context.Background()
	for _, k := range keys {
		var bidStr string
		err := s.db.GetContext(ctx, &bidStr, `SELECT bid FROM belief_node_keys WHERE key = $1`, keyString(k))
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
	Kinds      int32          `db:"kinds"`
	Schema     string         `db:"schema"`
	SemanticID sql.NullString `db:"semantic_id"`
	Title      sql.NullString `db:"title"`
	Payload    []byte         `db:"payload"`
	Version    int64          `db:"version"`
}

type relationRow struct {
	Source   string         `db:"source"`
	Sink     string         `db:"sink"`
	Kind     string         `db:"kind"`
	DocPaths sql.NullString `db:"doc_paths_text"`
	Version  int64          `db:"version"`
}

func (s *Store) loadBase(network ids.BID) (*graph.BeliefBase, error) {
	ctx := context.Background()
	base := graph.NewBeliefBase()

	var nodeRows []nodeRow
	err := s.db.SelectContext(ctx, &nodeRows,
		`SELECT bid, kinds, schema, semantic_id, title, payload, version FROM belief_nodes WHERE network = $1`,
		network.String())
	if err != nil {
		return nil, fmt.Errorf("pgcache: load nodes: %w", err)
	}
	for _, r := range nodeRows {
		bid, perr := ids.ParseBID(r.Bid)
		if perr != nil {
			continue
		}
		var payload map[string]any
		if len(r.Payload) > 0 {
			_ = json.Unmarshal(r.Payload, &payload)
		}
		base.Apply(event.NewNodeUpdate(event.Durable, bid, event.NodeBody{
			Kinds: uint32(r.Kinds), Schema: r.Schema, SemanticID: r.SemanticID.String,
			Title: r.Title.String, Payload: payload, Version: r.Version,
		}))
	}

	var relRows []relationRow
	err = s.db.SelectContext(ctx, &relRows,
		`SELECT source, sink, kind, array_to_string(doc_paths, E'\x1f') AS doc_paths_text, version
		 FROM belief_relations WHERE network = $1`, network.String())
	if err != nil {
		return nil, fmt.Errorf("pgcache: load relations: %w", err)
	}
	for _, r := range relRows {
		source, err1 := ids.ParseBID(r.Source)
		sink, err2 := ids.ParseBID(r.Sink)
		if err1 != nil || err2 != nil {
			continue
		}
		var paths []string
		if r.DocPaths.Valid && r.DocPaths.String != "" {
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

// EvalTrace walks Trace-kind edges out of bid, breadth-first.
func (s *Store) EvalTrace(bid ids.BID) ([]graph.EdgeRef, error) {
	var networkStr string
	err := s.db.Get(&networkStr, `SELECT network FROM belief_nodes WHERE bid = $1`, bid.String())
	if err != nil {
		return nil, nil
	}
	network, err := ids.ParseBID(networkStr)
	if err != nil {
		return nil, err
	}
	base, err := s.loadBase(network)
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
	return s.transaction(func(tx *sqlx.Tx) error {
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
		_, err := tx.Exec(`INSERT INTO belief_nodes (bid, network, kinds, schema, semantic_id, title, payload, version)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (bid) DO UPDATE SET kinds=EXCLUDED.kinds, schema=EXCLUDED.schema,
				semantic_id=EXCLUDED.semantic_id, title=EXCLUDED.title, payload=EXCLUDED.payload,
				version=EXCLUDED.version`,
			p.Bid.String(), network.String(), p.Node.Kinds, p.Node.Schema, p.Node.SemanticID,
			p.Node.Title, payload, p.Node.Version)
		if err != nil {
			return fmt.Errorf("pgcache: upsert node: %w", err)
		}
		for _, k := range p.Keys {
			if _, err := tx.Exec(`INSERT INTO belief_node_keys (key, bid) VALUES ($1,$2)
				ON CONFLICT (key) DO UPDATE SET bid=EXCLUDED.bid`, keyString(k), p.Bid.String()); err != nil {
				return fmt.Errorf("pgcache: upsert node key: %w", err)
			}
		}
		return nil

	case event.KindNodesRemoved:
		for _, bid := range ev.NodesRemoved.Bids {
			if _, err := tx.Exec(`DELETE FROM belief_nodes WHERE bid = $1`, bid.String()); err != nil {
				return err
			}
			if _, err := tx.Exec(`DELETE FROM belief_node_keys WHERE bid = $1`, bid.String()); err != nil {
				return err
			}
		}
		return nil

	case event.KindRelationUpdate:
		p := ev.RelationUpdate
		var existing sql.NullString
		_ = tx.Get(&existing, `SELECT array_to_string(doc_paths, E'\x1f') FROM belief_relations
			WHERE source=$1 AND sink=$2 AND kind=$3`, p.Source.String(), p.Sink.String(), p.Weight.Kind)
		paths := mergePaths(existing.String, p.Weight.DocPaths)
		_, err := tx.Exec(`INSERT INTO belief_relations (source, sink, kind, doc_paths, version, network)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (source, sink, kind) DO UPDATE SET doc_paths=EXCLUDED.doc_paths, version=EXCLUDED.version`,
			p.Source.String(), p.Sink.String(), p.Weight.Kind, toPGArray(paths), p.Weight.Version, network.String())
		return err

	case event.KindRelationsRemoved:
		for _, ref := range ev.RelationsRemoved.Edges {
			if _, err := tx.Exec(`DELETE FROM belief_relations WHERE source=$1 AND sink=$2 AND kind=$3`,
				ref.Source.String(), ref.Sink.String(), ref.WeightKind); err != nil {
				return err
			}
		}
		return nil

	case event.KindNodeRenamed:
		p := ev.NodeRenamed
		if _, err := tx.Exec(`UPDATE belief_nodes SET bid=$1 WHERE bid=$2`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE belief_node_keys SET bid=$1 WHERE bid=$2`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(`UPDATE belief_relations SET source=$1 WHERE source=$2`, p.NewBid.String(), p.OldBid.String()); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE belief_relations SET sink=$1 WHERE sink=$2`, p.NewBid.String(), p.OldBid.String())
		return err

	default:
		return nil
	}
}

func mergePaths(existingJoined string, incoming []string) []string {
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
	return out
}

func toPGArray(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

var _ cache.BeliefSource = (*Store)(nil)
