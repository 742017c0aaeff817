package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
	"github.com/f5devops/xc-ns-mover/internal/mover/exec"
	"github.com/f5devops/xc-ns-mover/internal/mover/preflight"
	"github.com/f5devops/xc-ns-mover/internal/mover/report"
)

func TestDepKindOfAndDepNameOf(t *testing.T) {
	assert.Equal(t, "origin_pools", depKindOf("origin_pools/my-pool"))
	assert.Equal(t, "my-pool", depNameOf("origin_pools/my-pool"))
	assert.Equal(t, "", depKindOf("no-slash"))
	assert.Equal(t, "no-slash", depNameOf("no-slash"))
}

func TestBatchBlocked(t *testing.T) {
	b := batch.Batch{LBs: []batch.LoadBalancerRef{{Namespace: "ns1", Name: "lb1"}, {Namespace: "ns1", Name: "lb2"}}}

	assert.False(t, batchBlocked(b, map[string]bool{}))
	assert.True(t, batchBlocked(b, map[string]bool{"ns1/lb2": true}))
}

func TestBuildBatchGraphs_FlagsSharedAndExternalDeps(t *testing.T) {
	batches := []batch.Batch{
		{
			LBs: []batch.LoadBalancerRef{{Namespace: "ns1", Name: "lb1"}, {Namespace: "ns1", Name: "lb2"}},
			Deps: []discover.Dependency{
				{Kind: "origin_pools", Name: "shared-pool", Namespace: "ns1"},
				{Kind: "healthchecks", Name: "hc1", Namespace: "ns1"},
			},
		},
	}
	externalRefs := map[string][]preflight.ExternalRef{
		"origin_pools/shared-pool": {{LBName: "other-lb", LBNamespace: "ns2"}},
	}

	graphs := buildBatchGraphs(batches, externalRefs)
	require.Len(t, graphs, 1)

	g := graphs[0]
	assert.ElementsMatch(t, []string{"lb1", "lb2"}, g.LBNames)
	assert.True(t, g.ExternalDeps[report.DepKey{Kind: "origin_pools", Name: "shared-pool"}])
	assert.False(t, g.ExternalDeps[report.DepKey{Kind: "healthchecks", Name: "hc1"}])
}

func TestBlockExternallyReferencedBatches_BlocksAndNamesReferrer(t *testing.T) {
	batches := []batch.Batch{
		{
			LBs: []batch.LoadBalancerRef{{Namespace: "ns1", Name: "lb-a"}, {Namespace: "ns1", Name: "lb-b"}},
			Deps: []discover.Dependency{
				{Kind: "origin_pools", Name: "shared-pool", Namespace: "ns1"},
			},
		},
		{
			LBs:  []batch.LoadBalancerRef{{Namespace: "ns1", Name: "lb-c"}},
			Deps: []discover.Dependency{{Kind: "healthchecks", Name: "hc1", Namespace: "ns1"}},
		},
	}
	externalRefs := map[string][]preflight.ExternalRef{
		"origin_pools/shared-pool": {{LBName: "lb-c", LBNamespace: "ns1"}},
	}

	blocked := blockExternallyReferencedBatches(batches, externalRefs)

	require.Len(t, blocked, 1)
	require.Contains(t, blocked, 0)
	assert.Contains(t, blocked[0], "ns1/lb-c")
	assert.NotContains(t, blocked, 1)
}

func TestBlockExternallyReferencedBatches_NoExternalRefsMeansNoneBlocked(t *testing.T) {
	batches := []batch.Batch{
		{
			LBs:  []batch.LoadBalancerRef{{Namespace: "ns1", Name: "lb-a"}},
			Deps: []discover.Dependency{{Kind: "origin_pools", Name: "pool1", Namespace: "ns1"}},
		},
	}

	blocked := blockExternallyReferencedBatches(batches, map[string][]preflight.ExternalRef{})

	assert.Empty(t, blocked)
}

func TestSummarize_ErrorsWhenAnyLBFailedOrBlocked(t *testing.T) {
	err := summarize([]exec.LoadBalancerResult{
		{LBName: "lb1", Status: exec.StatusMoved},
		{LBName: "lb2", Status: exec.StatusFailed},
	})
	assert.ErrorContains(t, err, "1 of 2")
}

func TestSummarize_NoErrorWhenAllSucceed(t *testing.T) {
	err := summarize([]exec.LoadBalancerResult{
		{LBName: "lb1", Status: exec.StatusMoved},
		{LBName: "lb2", Status: exec.StatusDryRun},
	})
	assert.NoError(t, err)
}
