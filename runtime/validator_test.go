package runtime

import (
	"fmt"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/dagflow/types"
)

func node(name string, deps ...string) types.NodeInfo {
	return types.NodeInfo{Name: name, Dependencies: deps}
}

func assertOrderRespectsDependencies(t *testing.T, nodes []types.NodeInfo, order []string) {
	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	assert.Equal(t, len(nodes), len(position))
	for _, n := range nodes {
		for _, dep := range n.Dependencies {
			assert.Less(t, position[dep], position[n.Name], "%s must come after %s", n.Name, dep)
		}
	}
}

func TestValidateDiamond(t *testing.T) {
	nodes := []types.NodeInfo{node("A"), node("B", "A"), node("C", "A"), node("D", "B", "C")}

	order, err := Validate(nodes)
	assert.Nil(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	assertOrderRespectsDependencies(t, nodes, order)
}

func TestValidateRegistrationOrderFree(t *testing.T) {
	nodes := []types.NodeInfo{node("D", "B", "C"), node("C", "A"), node("B", "A"), node("A")}

	order, err := Validate(nodes)
	assert.Nil(t, err)
	// dependencies are followed in declaration order
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
	assertOrderRespectsDependencies(t, nodes, order)
}

func TestValidateDisconnected(t *testing.T) {
	nodes := []types.NodeInfo{node("P"), node("Q", "P"), node("R"), node("S", "R", "P")}

	order, err := Validate(nodes)
	assert.Nil(t, err)
	assert.Equal(t, []string{"P", "Q", "R", "S"}, order)
}

func TestValidateEmpty(t *testing.T) {
	order, err := Validate(nil)
	assert.Nil(t, err)
	assert.Empty(t, order)
}

func TestValidateCycles(t *testing.T) {
	cases := []struct {
		name  string
		nodes []types.NodeInfo
		at    string
		path  []string
	}{
		{"two nodes", []types.NodeInfo{node("X", "Y"), node("Y", "X")}, "X", []string{"X", "Y", "X"}},
		{"three nodes", []types.NodeInfo{node("A", "C"), node("B", "A"), node("C", "B")}, "A", []string{"A", "C", "B", "A"}},
		{"self reference", []types.NodeInfo{node("X", "X")}, "X", []string{"X", "X"}},
		{"behind a valid prefix", []types.NodeInfo{node("A"), node("B", "A", "D"), node("C", "B"), node("D", "C")}, "B", []string{"B", "D", "C", "B"}},
	}

	for _, c := range cases {
		order, err := Validate(c.nodes)
		assert.Nil(t, order, c.name)
		require.True(t, types.IsCyclicDependency(err), c.name)

		var cycle *types.CyclicDependencyError
		require.True(t, errors.As(err, &cycle), c.name)
		assert.Equal(t, c.at, cycle.Node, c.name)
		assert.Equal(t, c.path, cycle.Path, c.name)
	}
}

func TestValidateUnknownDependency(t *testing.T) {
	order, err := Validate([]types.NodeInfo{node("A"), node("Z", "A", "W")})
	assert.Nil(t, order)
	assert.True(t, types.IsUnknownDependency(err))

	var unknown *types.UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Z", unknown.Node)
	assert.Equal(t, "W", unknown.Dependency)
}

func TestValidateDeepChain(t *testing.T) {
	const depth = 100000

	// registered from the tail, the traversal has to walk the whole chain at once
	nodes := make([]types.NodeInfo, 0, depth)
	for i := depth - 1; i > 0; i-- {
		nodes = append(nodes, node(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i-1)))
	}
	nodes = append(nodes, node("n0"))

	order, err := Validate(nodes)
	assert.Nil(t, err)
	assert.Len(t, order, depth)
	assert.Equal(t, "n0", order[0])
	assert.Equal(t, fmt.Sprintf("n%d", depth-1), order[depth-1])
}

func TestValidateDeterministic(t *testing.T) {
	nodes := []types.NodeInfo{node("E", "D"), node("A"), node("D", "B", "C"), node("C", "A"), node("B", "A"), node("F")}

	first, err := Validate(nodes)
	assert.Nil(t, err)
	for i := 0; i < 20; i++ {
		order, err := Validate(nodes)
		assert.Nil(t, err)
		assert.Equal(t, first, order)
	}
	assertOrderRespectsDependencies(t, nodes, first)
}
