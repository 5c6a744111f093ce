package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/citydispatch/core/model"
)

func sampleStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	nodes := []Node{
		{ID: "Z1_S1_1", Type: LocationStreet, X: 0, Y: 0},
		{ID: "Z1_S1_2", Type: LocationStreet, X: 100, Y: 0},
		{ID: "Z1_H1", Type: LocationHome, X: 50, Y: 10},
		{ID: "Z2_HW_1", Type: LocationHighway, X: 300, Y: 0},
	}
	for _, n := range nodes {
		require.NoError(t, s.AddNode(n))
	}
	require.NoError(t, s.AddEdge("Z1_S1_1", "Z1_S1_2", 100, "street"))
	require.NoError(t, s.AddEdge("Z1_H1", "Z1_S1_1", 51, "Location Edge"))
	require.NoError(t, s.AddEdge("Z1_S1_2", "Z2_HW_1", 200, "highway"))
	return s
}

func TestStore_EdgesAreSymmetric(t *testing.T) {
	s := sampleStore(t)
	for _, n := range s.Nodes() {
		for _, e := range s.Neighbors(n.ID) {
			found := false
			for _, back := range s.Neighbors(e.To) {
				if back.To == n.ID {
					assert.Equal(t, e.Weight, back.Weight, "weight mismatch %s<->%s", n.ID, e.To)
					found = true
				}
			}
			assert.True(t, found, "missing reverse edge %s->%s", e.To, n.ID)
		}
	}
	assert.Equal(t, 6, s.EdgeCount())
	assert.Equal(t, 3, s.UniqueEdgeCount())
}

func TestStore_AddEdgeIdempotent(t *testing.T) {
	s := sampleStore(t)
	require.NoError(t, s.AddEdge("Z1_S1_1", "Z1_S1_2", 999, "dup"))
	require.NoError(t, s.AddEdge("Z1_S1_2", "Z1_S1_1", 999, "dup"))
	assert.Len(t, s.Neighbors("Z1_S1_1"), 2)
	assert.Equal(t, 6, s.EdgeCount())
	for _, e := range s.Neighbors("Z1_S1_1") {
		if e.To == "Z1_S1_2" {
			assert.Equal(t, 100.0, e.Weight)
		}
	}
}

func TestStore_AddEdgeUnknownNode(t *testing.T) {
	s := sampleStore(t)
	err := s.AddEdge("Z1_S1_1", "nope", 1, "")
	assert.ErrorIs(t, err, model.ErrInvalidID)
	assert.Empty(t, s.Neighbors("nope"))
}

func TestStore_DuplicateNode(t *testing.T) {
	s := sampleStore(t)
	err := s.AddNode(Node{ID: "Z1_H1", Type: LocationHome})
	assert.ErrorIs(t, err, model.ErrInvalidID)
	assert.Equal(t, 4, s.NodeCount())
}

func TestStore_Sealed(t *testing.T) {
	s := sampleStore(t)
	s.Seal()
	assert.ErrorIs(t, s.AddNode(Node{ID: "x"}), ErrGraphSealed)
	assert.ErrorIs(t, s.AddEdge("Z1_S1_1", "Z1_H1", 1, ""), ErrGraphSealed)
	assert.True(t, s.Sealed())
}

func TestStore_StraightLineDistance(t *testing.T) {
	s := sampleStore(t)
	d, err := s.StraightLineDistance("Z1_S1_1", "Z1_S1_2")
	require.NoError(t, err)
	assert.Equal(t, 100.0, d)

	_, err = s.StraightLineDistance("Z1_S1_1", "missing")
	assert.ErrorIs(t, err, model.ErrInvalidID)
}

func TestStore_FindNearestNode(t *testing.T) {
	s := sampleStore(t)
	n, ok := s.FindNearestNode(50, 9)
	require.True(t, ok)
	assert.Equal(t, "Z1_H1", n.ID)

	n, ok = s.NearestRouteNode(50, 9)
	require.True(t, ok)
	assert.Equal(t, "Z1_S1_1", n.ID, "tie between street nodes goes to the first inserted")

	_, ok = NewStore().FindNearestNode(0, 0)
	assert.False(t, ok)
}

func TestStore_NodesByType(t *testing.T) {
	s := sampleStore(t)
	streets := s.NodesByType(LocationStreet)
	require.Len(t, streets, 2)
	assert.Equal(t, "Z1_S1_1", streets[0].ID)
	assert.Len(t, s.NodesByType(LocationHospital), 0)
}
