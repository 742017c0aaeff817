package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
	"github.com/f5devops/xc-ns-mover/internal/mover/discover"
	"github.com/f5devops/xc-ns-mover/internal/mover/preflight"
)

type noopSleeper struct{}

func (noopSleeper) Sleep(time.Duration) {}

type fakeAPIClient struct {
	deletedLBs      []string
	deletedDeps     []string
	createdLBs      []string
	createdDeps     []string
	probeReferrers  map[string][]client.Referrer
	probeDeletedOK  map[string]bool
	failDeleteLB    bool
	failCreateDep   bool
	failCreateLB    bool
	createdLBDoc    client.ConfigDocument
}

func (f *fakeAPIClient) DeleteHTTPLoadBalancer(_ context.Context, namespace, name string) error {
	if f.failDeleteLB {
		return errors.New("boom")
	}
	f.deletedLBs = append(f.deletedLBs, namespace+"/"+name)
	return nil
}

func (f *fakeAPIClient) DeleteConfigObject(_ context.Context, namespace, resourceType, name string) error {
	f.deletedDeps = append(f.deletedDeps, namespace+"/"+resourceType+"/"+name)
	return nil
}

func (f *fakeAPIClient) ProbeDeleteConfigObject(_ context.Context, namespace, resourceType, name string) ([]client.Referrer, bool, error) {
	key := resourceType + "/" + name
	if refs, ok := f.probeReferrers[key]; ok {
		return refs, false, nil
	}
	f.deletedDeps = append(f.deletedDeps, namespace+"/"+key)
	return nil, true, nil
}

func (f *fakeAPIClient) GetConfigObject(_ context.Context, namespace, resourceType, name string) (client.ConfigDocument, error) {
	return client.ConfigDocument{"metadata": map[string]any{"name": name}, "spec": map[string]any{}}, nil
}

func (f *fakeAPIClient) GetHTTPLoadBalancer(_ context.Context, namespace, name string) (client.ConfigDocument, error) {
	return client.ConfigDocument{"spec": map[string]any{}}, nil
}

func (f *fakeAPIClient) CreateConfigObject(_ context.Context, namespace, resourceType string, metadata, spec map[string]any) (client.ConfigDocument, error) {
	if f.failCreateDep {
		return nil, errors.New("boom")
	}
	f.createdDeps = append(f.createdDeps, namespace+"/"+resourceType)
	return client.ConfigDocument{"metadata": metadata, "spec": spec}, nil
}

func (f *fakeAPIClient) CreateHTTPLoadBalancer(_ context.Context, namespace string, metadata, spec map[string]any) (client.ConfigDocument, error) {
	if f.failCreateLB {
		return nil, errors.New("boom")
	}
	f.createdLBs = append(f.createdLBs, namespace)
	if f.createdLBDoc != nil {
		return f.createdLBDoc, nil
	}
	return client.ConfigDocument{"metadata": metadata, "spec": spec}, nil
}

func simpleBatch() batch.Batch {
	return batch.Batch{
		LBs:  []batch.LoadBalancerRef{{Namespace: "src-ns", Name: "lb1"}},
		Deps: []discover.Dependency{{Kind: "origin_pools", Name: "pool1", Namespace: "src-ns"}},
	}
}

func simpleInput(fc *fakeAPIClient) BatchInput {
	return BatchInput{
		Batch: simpleBatch(),
		LBConfigs: map[string]client.ConfigDocument{
			"src-ns/lb1": {"metadata": map[string]any{"name": "lb1"}, "spec": map[string]any{"http": map[string]any{}}},
		},
		DepConfigs: map[string]client.ConfigDocument{
			"origin_pools/pool1": {"metadata": map[string]any{"name": "pool1"}, "spec": map[string]any{}},
		},
		TargetNamespace:  "dst-ns",
		ConflictSkipped:  map[string]bool{},
		NonPortableCerts: map[string]bool{},
		ManualRework:     map[string]preflight.ManualReworkItem{},
		DepRenameMap:     map[string]string{},
	}
}

func TestExecuteBatch_DryRunMarksEverythingDryRun(t *testing.T) {
	fc := &fakeAPIClient{}
	in := simpleInput(fc)
	in.DryRun = true

	results := New(fc, nil, WithSleeper(noopSleeper{})).ExecuteBatch(context.Background(), in)

	require.Len(t, results, 1)
	assert.Equal(t, StatusDryRun, results[0].Status)
	require.Len(t, results[0].Dependencies, 1)
	assert.Equal(t, StatusDryRun, results[0].Dependencies[0].Status)
	assert.Empty(t, fc.deletedLBs)
}

func TestExecuteBatch_HappyPathMovesLBAndDependency(t *testing.T) {
	fc := &fakeAPIClient{}
	in := simpleInput(fc)

	results := New(fc, nil, WithSleeper(noopSleeper{})).ExecuteBatch(context.Background(), in)

	require.Len(t, results, 1)
	assert.Equal(t, StatusMoved, results[0].Status)
	assert.Contains(t, fc.deletedLBs, "src-ns/lb1")
	assert.Contains(t, fc.deletedDeps, "src-ns/origin_pools/pool1")
	assert.Contains(t, fc.createdDeps, "dst-ns/origin_pools")
	assert.Contains(t, fc.createdLBs, "dst-ns")
	require.Len(t, results[0].Dependencies, 1)
	assert.Equal(t, StatusMoved, results[0].Dependencies[0].Status)
}

func TestExecuteBatch_ExternalReferrerBlocksAndRollsBack(t *testing.T) {
	fc := &fakeAPIClient{
		probeReferrers: map[string][]client.Referrer{
			"origin_pools/pool1": {{Kind: "healthcheck", Namespace: "src-ns", Name: "other-hc"}},
		},
	}
	in := simpleInput(fc)

	results := New(fc, nil, WithSleeper(noopSleeper{})).ExecuteBatch(context.Background(), in)

	require.Len(t, results, 1)
	assert.Equal(t, StatusReverted, results[0].Status)
	assert.NotEmpty(t, results[0].Error)
	require.Len(t, results[0].Dependencies, 1)
	assert.Equal(t, StatusBlocked, results[0].Dependencies[0].Status)
	// LB was deleted then rolled back (recreated in source).
	assert.Contains(t, fc.deletedLBs, "src-ns/lb1")
	assert.Contains(t, fc.createdLBs, "src-ns")
}

func TestExecuteBatch_CreateFailureRollsBack(t *testing.T) {
	fc := &fakeAPIClient{failCreateLB: true}
	in := simpleInput(fc)

	results := New(fc, nil, WithSleeper(noopSleeper{})).ExecuteBatch(context.Background(), in)

	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	// dependency was created in target, then rolled back (deleted from target).
	assert.Contains(t, fc.createdDeps, "dst-ns/origin_pools")
	assert.Contains(t, fc.deletedDeps, "dst-ns/origin_pools/pool1")
	// the LB was deleted from source but rollback's recreate also fails
	// (failCreateLB is unconditional here), so the original error is
	// preserved alongside the "ROLLBACK FAILED" marker, not lost.
	assert.Contains(t, results[0].Error, "ROLLBACK FAILED")
	assert.Contains(t, results[0].Error, "boom")
}

func TestExecuteBatch_NonPortableCertStaysInSource(t *testing.T) {
	fc := &fakeAPIClient{}
	in := simpleInput(fc)
	in.Batch.Deps = []discover.Dependency{{Kind: "certificates", Name: "cert1", Namespace: "src-ns"}}
	in.DepConfigs = map[string]client.ConfigDocument{
		"certificates/cert1": {"metadata": map[string]any{"name": "cert1"}, "spec": map[string]any{}},
	}
	in.NonPortableCerts = map[string]bool{"certificates/cert1": true}

	results := New(fc, nil, WithSleeper(noopSleeper{})).ExecuteBatch(context.Background(), in)

	require.Len(t, results, 1)
	require.Len(t, results[0].Dependencies, 1)
	assert.Equal(t, StatusManualRework, results[0].Dependencies[0].Status)
	assert.NotContains(t, fc.deletedDeps, "src-ns/certificates/cert1")
	assert.NotContains(t, fc.createdDeps, "dst-ns/certificates")
}
