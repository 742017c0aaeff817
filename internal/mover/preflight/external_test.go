package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
)

type fakeObjectLister struct {
	lbs     map[string][]client.LoadBalancer
	objects map[string]client.ConfigDocument
}

func (f fakeObjectLister) ListAllLoadBalancers(_ context.Context, namespace string) ([]client.LoadBalancer, error) {
	return f.lbs[namespace], nil
}

func (f fakeObjectLister) GetConfigObject(_ context.Context, namespace, resourceType, name string) (client.ConfigDocument, error) {
	key := namespace + "/" + resourceType + "/" + name
	if doc, ok := f.objects[key]; ok {
		return doc, nil
	}
	return nil, assertNotFoundErr{}
}

type assertNotFoundErr struct{}

func (assertNotFoundErr) Error() string { return "not found" }

func TestScanExternalReferences_FindsReferrerOutsideMoveSet(t *testing.T) {
	lister := fakeObjectLister{
		lbs: map[string][]client.LoadBalancer{
			"ns1": {{Name: "other-lb", Kind: "http_loadbalancer"}},
		},
		objects: map[string]client.ConfigDocument{
			"ns1/http_loadbalancers/other-lb": {
				"spec": map[string]any{
					"default_pool_list": []any{
						map[string]any{"pool": map[string]any{"name": "shared-pool", "namespace": "ns1"}},
					},
				},
			},
		},
	}

	toMove := []batch.LoadBalancerRef{{Namespace: "ns1", Name: "moving-lb"}}
	plans := []batch.Plan{
		{
			LB:   toMove[0],
			Deps: []discover.Dependency{{Kind: "origin_pools", Name: "shared-pool", Namespace: "ns1"}},
		},
	}

	result := ScanExternalReferences(context.Background(), lister, nil, toMove, plans)

	require.Contains(t, result, "origin_pools/shared-pool")
	assert.Equal(t, "other-lb", result["origin_pools/shared-pool"][0].LBName)
}

func TestScanExternalReferences_NoDependenciesReturnsEmpty(t *testing.T) {
	lister := fakeObjectLister{}
	result := ScanExternalReferences(context.Background(), lister, nil, nil, nil)
	assert.Empty(t, result)
}

func TestScanExternalReferences_SkipsLBsInsideMoveSet(t *testing.T) {
	lister := fakeObjectLister{
		lbs: map[string][]client.LoadBalancer{
			"ns1": {{Name: "moving-lb", Kind: "http_loadbalancer"}},
		},
	}
	toMove := []batch.LoadBalancerRef{{Namespace: "ns1", Name: "moving-lb"}}
	plans := []batch.Plan{
		{LB: toMove[0], Deps: []discover.Dependency{{Kind: "origin_pools", Name: "shared-pool", Namespace: "ns1"}}},
	}

	result := ScanExternalReferences(context.Background(), lister, nil, toMove, plans)
	assert.Empty(t, result)
}
