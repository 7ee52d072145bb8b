package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ali01/noetgraph/internal/cache/memcache"
	"github.com/ali01/noetgraph/internal/event"
	"github.com/ali01/noetgraph/internal/ids"
)

func newTestRouter(t *testing.T) (*gin.Engine, ids.BID, ids.BID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memcache.New()
	network := ids.New(ids.Nil)
	bid := ids.New(network)
	require.NoError(t, store.Commit(network, []event.Event{
		event.NewNodeUpdate(event.Durable, bid, event.NodeBody{Title: "Root"}),
	}))

	router := gin.New()
	SetupRoutes(router, store)
	return router, network, bid
}

func TestGetBalancedReturnsCommittedNodes(t *testing.T) {
	router, network, bid := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/networks/"+network.String()+"/balanced", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Nodes []nodeView `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Nodes, 1)
	assert.Equal(t, bid, body.Nodes[0].Bid)
	assert.Equal(t, "Root", body.Nodes[0].Title)
}

func TestGetBalancedRejectsInvalidNetworkID(t *testing.T) {
	router, _, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/networks/not-a-uuid/balanced", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTraceReturnsEmptyForLeafNode(t *testing.T) {
	router, _, bid := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/v1/nodes/"+bid.String()+"/trace", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Edges []edgeView `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Edges)
}
