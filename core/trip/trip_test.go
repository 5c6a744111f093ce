package trip

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/citydispatch/core/model"
	"github.com/kilianp07/citydispatch/core/routing"
)

func TestCanTransition(t *testing.T) {
	valid := map[State][]State{
		Requested:        {Assigned, Cancelled},
		Assigned:         {PickupInProgress, Cancelled},
		PickupInProgress: {Ongoing, Cancelled},
		Ongoing:          {Completed},
	}
	for _, from := range States() {
		for _, to := range States() {
			want := false
			for _, v := range valid[from] {
				if v == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition_RejectedLeavesState(t *testing.T) {
	tr := New(1, 7, "Z1_a", "Z2_b")
	require.NoError(t, tr.Transition(Assigned))
	require.NoError(t, tr.Transition(PickupInProgress))
	require.NoError(t, tr.Transition(Ongoing))
	require.NoError(t, tr.Transition(Completed))

	err := tr.Transition(Assigned)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Equal(t, Completed, tr.State)
	assert.True(t, tr.State.Terminal())
}

func TestTransition_OngoingCannotCancel(t *testing.T) {
	tr := New(1, 7, "a", "b")
	tr.State = Ongoing
	assert.ErrorIs(t, tr.Transition(Cancelled), model.ErrInvalidTransition)
	assert.Equal(t, Ongoing, tr.State)
}

func TestFare_CrossZone(t *testing.T) {
	tr := New(1, 1, "Z1_S1_1", "Z2_S4_3")
	tr.DriverToPickup = routing.PathResult{Nodes: []string{"x", "Z1_S1_1"}, Distance: 500}
	tr.PickupToDropoff = routing.PathResult{Nodes: []string{"Z1_S1_1", "Z2_S4_3"}, Distance: 1500}
	assert.Equal(t, 300.0, tr.BaseFare())
	assert.Equal(t, 100.0, tr.ZoneSurcharge())
	assert.Equal(t, 400.0, tr.TotalFare())
	assert.Equal(t, Fare{Base: 300, Surcharge: 100, Total: 400}, tr.Fare())
}

func TestFare_SameZone(t *testing.T) {
	f := Quote(2000, "Z1_S1_1", "Z1_S9_2")
	assert.Equal(t, 0.0, f.Surcharge)
	assert.Equal(t, 300.0, f.Total)
}

func TestFare_NoUnderscoreZone(t *testing.T) {
	assert.Equal(t, 0.0, ZoneSurcharge("A", "A"))
	assert.Equal(t, CrossZoneSurcharge, ZoneSurcharge("A", "B"))
}

func TestActivePath(t *testing.T) {
	tr := New(1, 1, "p", "d")
	tr.DriverToPickup = routing.PathResult{Nodes: []string{"s", "p"}, Distance: 1}
	tr.PickupToDropoff = routing.PathResult{Nodes: []string{"p", "d"}, Distance: 2}
	_, ok := tr.ActivePath()
	assert.False(t, ok)
	tr.State = PickupInProgress
	p, ok := tr.ActivePath()
	require.True(t, ok)
	assert.Equal(t, "s", p.At(0))
	tr.State = Ongoing
	p, _ = tr.ActivePath()
	assert.Equal(t, "d", p.At(1))
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(PickupInProgress)
	require.NoError(t, err)
	assert.Equal(t, `"PICKUP_IN_PROGRESS"`, string(b))
	var s State
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, PickupInProgress, s)
	assert.Error(t, json.Unmarshal([]byte(`"BOGUS"`), &s))
}

func TestClone_IsDeep(t *testing.T) {
	tr := New(1, 1, "p", "d")
	tr.PickupToDropoff = routing.PathResult{Nodes: []string{"p", "d"}, Distance: 2}
	c := tr.Clone()
	c.PickupToDropoff.Nodes[0] = "changed"
	assert.Equal(t, "p", tr.PickupToDropoff.Nodes[0])
}
