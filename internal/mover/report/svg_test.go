package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderBatchSVG_SingleLBNoSharedDepsUsesChainLayout(t *testing.T) {
	b := BatchGraphData{
		LBNames: []string{"lb1"},
		LBToDeps: map[string][]DepKey{
			"lb1": {{Kind: "origin_pools", Name: "pool1"}},
		},
		DepChildren: map[DepKey][]DepKey{
			{Kind: "origin_pools", Name: "pool1"}: {{Kind: "healthchecks", Name: "hc1"}},
		},
	}

	svg := RenderBatchSVG(b)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "lb1")
	assert.Contains(t, svg, "OP: pool1")
	assert.Contains(t, svg, "HC: hc1")
}

func TestRenderBatchSVG_MultiLBUsesFullGraphLayout(t *testing.T) {
	b := BatchGraphData{
		LBNames: []string{"lb1", "lb2"},
		LBToDeps: map[string][]DepKey{
			"lb1": {{Kind: "origin_pools", Name: "shared-pool"}},
			"lb2": {{Kind: "origin_pools", Name: "shared-pool"}},
		},
		SharedDeps: map[DepKey]bool{{Kind: "origin_pools", Name: "shared-pool"}: true},
	}

	svg := RenderBatchSVG(b)
	assert.Contains(t, svg, "lb1")
	assert.Contains(t, svg, "lb2")
	assert.Contains(t, svg, "shared dependency")
}

func TestRenderBatchSVG_ExternalDepShowsLegend(t *testing.T) {
	dk := DepKey{Kind: "origin_pools", Name: "pool1"}
	b := BatchGraphData{
		LBNames:      []string{"lb1"},
		LBToDeps:     map[string][]DepKey{"lb1": {dk}},
		SharedDeps:   map[DepKey]bool{dk: true},
		ExternalDeps: map[DepKey]bool{dk: true},
	}

	svg := RenderBatchSVG(b)
	assert.Contains(t, svg, "used by external object")
}

func TestDepLabel_TruncatesLongNames(t *testing.T) {
	label := depLabel(DepKey{Kind: "origin_pools", Name: strings.Repeat("x", 40)})
	assert.Less(t, len(label), 40)
	assert.True(t, strings.HasSuffix(label, "..."))
}

func TestDepLabel_UsesFriendlyShortNames(t *testing.T) {
	assert.Equal(t, "OP: pool1", depLabel(DepKey{Kind: "origin_pools", Name: "pool1"}))
	assert.Equal(t, "HC: hc1", depLabel(DepKey{Kind: "healthchecks", Name: "hc1"}))
	assert.Equal(t, "Cert: cert1", depLabel(DepKey{Kind: "certificates", Name: "cert1"}))
}
