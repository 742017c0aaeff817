package rollback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
)

type fakeClient struct {
	deletedLBs    []string
	deletedDeps   []string
	createdLBs    []string
	createdDeps   []string
	failCreateLB  bool
	failCreateDep bool
	lbDoc         client.ConfigDocument
}

func (f *fakeClient) DeleteHTTPLoadBalancer(_ context.Context, namespace, name string) error {
	f.deletedLBs = append(f.deletedLBs, namespace+"/"+name)
	return nil
}

func (f *fakeClient) DeleteConfigObject(_ context.Context, namespace, resourceType, name string) error {
	f.deletedDeps = append(f.deletedDeps, namespace+"/"+resourceType+"/"+name)
	return nil
}

func (f *fakeClient) CreateConfigObject(_ context.Context, namespace, resourceType string, metadata, spec map[string]any) (client.ConfigDocument, error) {
	if f.failCreateDep {
		return nil, errors.New("boom")
	}
	f.createdDeps = append(f.createdDeps, namespace+"/"+resourceType)
	return client.ConfigDocument{"metadata": metadata, "spec": spec}, nil
}

func (f *fakeClient) CreateHTTPLoadBalancer(_ context.Context, namespace string, metadata, spec map[string]any) (client.ConfigDocument, error) {
	if f.failCreateLB {
		return nil, errors.New("boom")
	}
	f.createdLBs = append(f.createdLBs, namespace)
	return client.ConfigDocument{"metadata": metadata, "spec": spec}, nil
}

func (f *fakeClient) GetHTTPLoadBalancer(_ context.Context, namespace, name string) (client.ConfigDocument, error) {
	if f.lbDoc != nil {
		return f.lbDoc, nil
	}
	return client.ConfigDocument{}, nil
}

func TestRun_DeletesCreatedObjectsAndRestoresDeleted(t *testing.T) {
	fc := &fakeClient{
		lbDoc: client.ConfigDocument{
			"spec": map[string]any{"dns_info": []any{map[string]any{"dns_name": "restored.example.com"}}},
		},
	}

	in := Input{
		TargetNamespace: "target-ns",
		DeletedLBs: []DeletedLB{
			{Name: "lb1", Namespace: "src-ns", Config: client.ConfigDocument{"metadata": map[string]any{"name": "lb1"}, "spec": map[string]any{}}},
		},
		DeletedDeps: []DeletedDep{
			{Kind: "origin_pools", Name: "pool1", Namespace: "src-ns", Config: client.ConfigDocument{"metadata": map[string]any{"name": "pool1"}, "spec": map[string]any{}}},
		},
		CreatedLBs:  []string{"lb1"},
		CreatedDeps: []DepIdentity{{Kind: "origin_pools", Name: "pool1"}},
	}

	out := Run(context.Background(), fc, nil, in)

	assert.Contains(t, fc.deletedLBs, "target-ns/lb1")
	assert.Contains(t, fc.deletedDeps, "target-ns/origin_pools/pool1")
	assert.Contains(t, fc.createdDeps, "src-ns/origin_pools")
	assert.Contains(t, fc.createdLBs, "src-ns")

	require.Contains(t, out.RestoredLBs, "src-ns/lb1")
	assert.Equal(t, "restored.example.com", out.RestoredLBs["src-ns/lb1"].CNAME)
	assert.Contains(t, out.RestoredDeps, "origin_pools/pool1")
}

func TestRun_LBRestoreFailureDoesNotPanic(t *testing.T) {
	fc := &fakeClient{failCreateLB: true}
	in := Input{
		TargetNamespace: "target-ns",
		DeletedLBs: []DeletedLB{
			{Name: "lb1", Namespace: "src-ns", Config: client.ConfigDocument{"metadata": map[string]any{"name": "lb1"}, "spec": map[string]any{}}},
		},
	}

	out := Run(context.Background(), fc, nil, in)
	assert.Empty(t, out.RestoredLBs)
	require.Contains(t, out.FailedLBs, "src-ns/lb1")
	assert.EqualError(t, out.FailedLBs["src-ns/lb1"], "boom")
}

func TestRun_DepRestoreFailurePreservesOriginalError(t *testing.T) {
	fc := &fakeClient{failCreateDep: true}
	in := Input{
		TargetNamespace: "target-ns",
		DeletedDeps: []DeletedDep{
			{Kind: "origin_pools", Name: "pool1", Namespace: "src-ns", Config: client.ConfigDocument{"metadata": map[string]any{"name": "pool1"}, "spec": map[string]any{}}},
		},
	}

	out := Run(context.Background(), fc, nil, in)
	assert.Empty(t, out.RestoredDeps)
	require.Contains(t, out.FailedDeps, "origin_pools/pool1")
	assert.EqualError(t, out.FailedDeps["origin_pools/pool1"], "boom")
}
