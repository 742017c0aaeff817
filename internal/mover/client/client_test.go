package client

import (
	"bytes"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respWithBody(body string) *http.Response {
	return &http.Response{Body: io.NopCloser(bytes.NewBufferString(body))}
}

func TestParse409Referrers_StructuredMessage(t *testing.T) {
	resp := respWithBody(`{"code": 9, "message": "referenced by origin_pool [ns1/op-a], healthcheck ns1/hc-a"}`)

	referrers := parse409Referrers(resp)

	require.Len(t, referrers, 2)
	assert.Equal(t, Referrer{Kind: "origin_pool", Namespace: "ns1", Name: "op-a"}, referrers[0])
	assert.Equal(t, Referrer{Kind: "healthcheck", Namespace: "ns1", Name: "hc-a"}, referrers[1])
}

func TestParse409Referrers_UnparsableMessageFallsBackToRaw(t *testing.T) {
	resp := respWithBody(`{"code": 9, "message": "something went wrong"}`)

	referrers := parse409Referrers(resp)

	require.Len(t, referrers, 1)
	assert.Equal(t, "?", referrers[0].Kind)
	assert.Equal(t, "something went wrong", referrers[0].Raw)
}

func TestParse409Referrers_NonJSONBodyFallsBackToRaw(t *testing.T) {
	resp := respWithBody(`not json`)

	referrers := parse409Referrers(resp)

	require.Len(t, referrers, 1)
	assert.Equal(t, "not json", referrers[0].Raw)
}

func TestIsCertPortable(t *testing.T) {
	portable, reason := IsCertPortable(ConfigDocument{
		"spec": map[string]any{"private_key": map[string]any{}},
	})
	assert.True(t, portable)
	assert.Empty(t, reason)

	blocked, reason := IsCertPortable(ConfigDocument{
		"spec": map[string]any{"private_key": map[string]any{
			"blindfold_secret_info": map[string]any{"foo": "bar"},
		}},
	})
	assert.False(t, blocked)
	assert.Equal(t, "private key (blindfolded)", reason)
}

func TestExtractCertDomains(t *testing.T) {
	cert := ConfigDocument{
		"spec": map[string]any{
			"infos": []any{
				map[string]any{
					"dns_names":                 []any{"Example.com."},
					"subject_alternative_names": []any{"*.Example.com"},
					"subject":                   map[string]any{"common_name": "example.com"},
				},
			},
		},
	}

	domains := ExtractCertDomains(cert)
	assert.Equal(t, []string{"*.example.com", "example.com"}, domains)
}

func TestDomainMatchesCert_Wildcard(t *testing.T) {
	certDomains := []string{"*.a.b"}

	assert.True(t, DomainMatchesCert("x.a.b", certDomains))
	assert.False(t, DomainMatchesCert("a.b", certDomains))
	assert.False(t, DomainMatchesCert("y.x.a.b", certDomains))
}

func TestExtractManagedZoneDomains(t *testing.T) {
	zones := []ConfigDocument{
		{
			"metadata": map[string]any{"name": "zone-a"},
			"spec": map[string]any{
				"primary": map[string]any{
					"domain":                             "example.com",
					"allow_http_lb_managed_dns_records": map[string]any{},
				},
			},
		},
		{
			"metadata": map[string]any{"name": "zone-b"},
			"spec": map[string]any{
				"primary": map[string]any{"domain": "other.com"},
			},
		},
	}

	managed := ExtractManagedZoneDomains(zones)
	assert.True(t, managed["example.com"])
	assert.False(t, managed["other.com"])
}

func TestDomainIsUnderZone(t *testing.T) {
	assert.True(t, DomainIsUnderZone("app.example.com", "example.com"))
	assert.True(t, DomainIsUnderZone("example.com", "example.com"))
	assert.False(t, DomainIsUnderZone("other.com", "example.com"))
	assert.False(t, DomainIsUnderZone("notexample.com", "example.com"))
}

func TestCleanSpec_StripsReadonlyFields(t *testing.T) {
	raw := ConfigDocument{
		"spec": map[string]any{
			"domains": []any{"a.com"},
			"state":   "ACTIVE",
			"infos":   []any{},
		},
	}

	cleaned := CleanSpec(raw)
	assert.Contains(t, cleaned, "domains")
	assert.NotContains(t, cleaned, "state")
	assert.NotContains(t, cleaned, "infos")
}
