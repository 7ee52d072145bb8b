package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/graph"
	"github.com/ali01/noetgraph/internal/ids"
)

// nodeView and edgeView are the wire shapes returned to clients — the
// underlying graph.BeliefGraph keeps its nodes and relations in maps keyed
// by BID/EdgeRef, which encoding/json cannot serialize directly (a
// struct-keyed map has no JSON representation), so handlers flatten both
// into slices before responding.
type nodeView struct {
	Bid        ids.BID        `json:"bid"`
	Kinds      uint16         `json:"kinds"`
	Schema     string         `json:"schema"`
	SemanticID string         `json:"semantic_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	Version    int64          `json:"version"`
}

type edgeView struct {
	Source   ids.BID          `json:"source"`
	Sink     ids.BID          `json:"sink"`
	Kind     graph.WeightKind `json:"kind"`
	DocPaths []string         `json:"doc_paths"`
	Attrs    map[string]any   `json:"attrs,omitempty"`
	Version  int64            `json:"version"`
}

func baseView(base *graph.BeliefBase) gin.H {
	g := base.Graph()
	nodes := make([]nodeView, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, nodeView{
			Bid: n.Bid, Kinds: uint16(n.Kinds), Schema: n.Schema,
			SemanticID: n.SemanticID, Title: n.Title, Payload: n.Payload, Version: n.Version,
		})
	}
	edges := make([]edgeView, 0, len(g.Relations))
	for ref, w := range g.Relations {
		edges = append(edges, edgeView{
			Source: ref.Source, Sink: ref.Sink, Kind: ref.Kind,
			DocPaths: w.DocPaths, Attrs: w.Attrs, Version: w.Version,
		})
	}
	return gin.H{"nodes": nodes, "edges": edges}
}

func getBalanced(source cache.BeliefSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		network, err := ids.ParseBID(c.Param("network"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid network id"})
			return
		}
		base, err := source.EvalBalanced(network)
		if err != nil {
			handleError(c, err, "failed to evaluate balanced graph")
			return
		}
		c.JSON(http.StatusOK, baseView(base))
	}
}

func getUnbalanced(source cache.BeliefSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		network, err := ids.ParseBID(c.Param("network"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid network id"})
			return
		}
		base, err := source.EvalUnbalanced(network)
		if err != nil {
			handleError(c, err, "failed to evaluate unbalanced graph")
			return
		}
		c.JSON(http.StatusOK, baseView(base))
	}
}

func getTrace(source cache.BeliefSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		bid, err := ids.ParseBID(c.Param("bid"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node id"})
			return
		}
		refs, err := source.EvalTrace(bid)
		if err != nil {
			handleError(c, err, "failed to evaluate trace")
			return
		}
		edges := make([]edgeView, 0, len(refs))
		for _, ref := range refs {
			edges = append(edges, edgeView{Source: ref.Source, Sink: ref.Sink, Kind: ref.Kind})
		}
		c.JSON(http.StatusOK, gin.H{"edges": edges})
	}
}

// handleError maps an internal error to an HTTP status without leaking
// implementation details (file paths, driver error strings) to the client.
func handleError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request timeout"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "request canceled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": sanitizeError(err, message)})
	}
}

// sanitizeError collapses a backend error (which may embed a raw SQL
// driver message or filesystem path) down to one of a small set of
// generic, client-safe messages, the way the teacher's own
// sanitizeError/sanitizeParseHistory did for vault-processing errors.
func sanitizeError(err error, fallback string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "sqlite"), strings.Contains(msg, "pq:"), strings.Contains(msg, "bbolt"):
		return "storage operation failed"
	case strings.Contains(msg, "no such network"), strings.Contains(msg, "not found"):
		return "network not found"
	default:
		return fallback
	}
}
