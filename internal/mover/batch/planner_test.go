package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
)

func dep(kind, name string) discover.Dependency {
	return discover.Dependency{Kind: kind, Name: name, Namespace: "ns1"}
}

func TestCluster_SharedDependencyJoinsBatch(t *testing.T) {
	plans := []Plan{
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-a"}, Deps: []discover.Dependency{dep("origin_pools", "op-shared")}},
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-b"}, Deps: []discover.Dependency{dep("origin_pools", "op-shared")}},
	}

	batches := Cluster(plans, nil)

	require.Len(t, batches, 1)
	assert.Len(t, batches[0].LBs, 2)
}

func TestCluster_NoSharedDependencyStaysSeparate(t *testing.T) {
	plans := []Plan{
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-a"}, Deps: []discover.Dependency{dep("origin_pools", "op-a")}},
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-b"}, Deps: []discover.Dependency{dep("origin_pools", "op-b")}},
	}

	batches := Cluster(plans, nil)

	assert.Len(t, batches, 2)
}

func TestCluster_TransitiveSharingMergesThreeLBs(t *testing.T) {
	plans := []Plan{
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-a"}, Deps: []discover.Dependency{dep("origin_pools", "op-x")}},
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-b"}, Deps: []discover.Dependency{dep("origin_pools", "op-x"), dep("origin_pools", "op-y")}},
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-c"}, Deps: []discover.Dependency{dep("origin_pools", "op-y")}},
	}

	batches := Cluster(plans, nil)

	require.Len(t, batches, 1)
	assert.Len(t, batches[0].LBs, 3)
}

func TestCluster_PreservesFirstSeenOrderNotAlphabetical(t *testing.T) {
	// lb-z is listed first even though it sorts after lb-a; the merged
	// batch must keep members and deps in that encounter order, not
	// re-sort them alphabetically.
	plans := []Plan{
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-z"}, Deps: []discover.Dependency{dep("origin_pools", "op-z"), dep("origin_pools", "op-shared")}},
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-a"}, Deps: []discover.Dependency{dep("origin_pools", "op-shared"), dep("origin_pools", "op-a")}},
	}

	batches := Cluster(plans, nil)

	require.Len(t, batches, 1)
	require.Len(t, batches[0].LBs, 2)
	assert.Equal(t, "lb-z", batches[0].LBs[0].Name)
	assert.Equal(t, "lb-a", batches[0].LBs[1].Name)

	require.Len(t, batches[0].Deps, 3)
	assert.Equal(t, "op-z", batches[0].Deps[0].Name)
	assert.Equal(t, "op-shared", batches[0].Deps[1].Name)
	assert.Equal(t, "op-a", batches[0].Deps[2].Name)
}

func TestCluster_LBWithNoDependenciesIsItsOwnBatch(t *testing.T) {
	plans := []Plan{
		{LB: LoadBalancerRef{Namespace: "ns1", Name: "lb-solo"}},
	}

	batches := Cluster(plans, nil)

	require.Len(t, batches, 1)
	assert.Len(t, batches[0].LBs, 1)
}
