package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
)

type fakeZoneLister struct {
	zones []client.ConfigDocument
}

func (f fakeZoneLister) ListDNSZones(context.Context) ([]client.ConfigDocument, error) {
	return f.zones, nil
}

func TestScanDNSZones_FlagsManagedLetsEncryptLB(t *testing.T) {
	lister := fakeZoneLister{
		zones: []client.ConfigDocument{
			{
				"metadata": map[string]any{"name": "zone-a"},
				"spec": map[string]any{
					"primary": map[string]any{
						"domain":                            "example.com",
						"allow_http_lb_managed_dns_records": map[string]any{},
					},
				},
			},
		},
	}
	lbConfigs := map[string]client.ConfigDocument{
		"ns1/lb1": {
			"spec": map[string]any{
				"https_auto_cert": map[string]any{},
				"domains":         []any{"app.example.com"},
			},
		},
	}

	result := ScanDNSZones(context.Background(), lister, nil, lbConfigs)

	assert.True(t, result.ManagedZones["example.com"])
	assert.True(t, result.ManagedLBKeys["ns1/lb1"])
}

func TestScanDNSZones_UnmanagedDomainNotFlagged(t *testing.T) {
	lister := fakeZoneLister{}
	lbConfigs := map[string]client.ConfigDocument{
		"ns1/lb1": {
			"spec": map[string]any{
				"https_auto_cert": map[string]any{},
				"domains":         []any{"app.example.com"},
			},
		},
	}

	result := ScanDNSZones(context.Background(), lister, nil, lbConfigs)
	assert.Empty(t, result.ManagedLBKeys)
}

func TestScanDNSZones_NonLetsEncryptLBIgnored(t *testing.T) {
	lister := fakeZoneLister{
		zones: []client.ConfigDocument{
			{
				"metadata": map[string]any{"name": "zone-a"},
				"spec": map[string]any{
					"primary": map[string]any{
						"domain":                            "example.com",
						"allow_http_lb_managed_dns_records": map[string]any{},
					},
				},
			},
		},
	}
	lbConfigs := map[string]client.ConfigDocument{
		"ns1/lb1": {
			"spec": map[string]any{
				"https":   map[string]any{},
				"domains": []any{"app.example.com"},
			},
		},
	}

	result := ScanDNSZones(context.Background(), lister, nil, lbConfigs)
	assert.Empty(t, result.ManagedLBKeys)
}
