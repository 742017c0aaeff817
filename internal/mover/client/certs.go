package client

import (
	"context"
	"sort"
	"strings"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
)

// nonPortableSecretTypes are private-key sub-document fields that make a
// certificate's key unexportable via the API.
var nonPortableSecretTypes = []struct {
	field       string
	description string
}{
	{"blindfold_secret_info", "private key (blindfolded)"},
	{"clear_secret_info", "private key (clear secret)"},
	{"vault_secret_info", "private key (vault reference)"},
	{"wingman_secret_info", "private key (wingman)"},
}

// IsCertPortable reports whether a certificate's private key can be
// extracted and resubmitted via the create API. Returns (false, reason)
// for the four opaque secret storage modes XC supports.
func IsCertPortable(cert ConfigDocument) (bool, string) {
	spec := cert.Spec()
	pk, _ := spec["private_key"].(map[string]any)
	if pk == nil {
		return true, ""
	}

	for _, secret := range nonPortableSecretTypes {
		if v, ok := pk[secret.field]; ok && !isEmptyValue(v) {
			return false, secret.description
		}
	}

	if len(pk) > 0 {
		return false, "private key (unknown type)"
	}
	return true, ""
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return false // presence of the key at all signals the mode is set
	case string:
		return t == ""
	case bool:
		return !t
	default:
		return false
	}
}

// ExtractCertDomains returns the deduplicated, lowercased, sorted list of
// domains (CN + SANs) a certificate covers, read from spec.infos.
func ExtractCertDomains(cert ConfigDocument) []string {
	domains := make(map[string]bool)
	infos, _ := cert.Spec()["infos"].([]any)

	for _, raw := range infos {
		info, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, dns := range stringSlice(info["dns_names"]) {
			addDomain(domains, dns)
		}
		for _, san := range stringSlice(info["subject_alternative_names"]) {
			addDomain(domains, san)
		}

		cn := ""
		if subject, ok := info["subject"].(map[string]any); ok {
			cn, _ = subject["common_name"].(string)
		}
		if cn == "" {
			cn, _ = info["common_name"].(string)
		}
		if cn != "" {
			addDomain(domains, cn)
		}
	}

	out := make([]string, 0, len(domains))
	for d := range domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func addDomain(set map[string]bool, raw string) {
	d := strings.TrimRight(strings.ToLower(raw), ".")
	if d != "" {
		set[d] = true
	}
}

func stringSlice(raw any) []string {
	items, _ := raw.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExtractLBDomains returns the lowercased domain list from an HTTP load
// balancer's spec.domains field.
func ExtractLBDomains(lb ConfigDocument) []string {
	raw, _ := lb.Spec()["domains"].([]any)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, strings.TrimRight(strings.ToLower(s), "."))
		}
	}
	return out
}

// DomainMatchesCert reports whether domain is covered by any entry in
// certDomains, per RFC 6125-style wildcard matching: "*.a.b" matches
// "x.a.b" but neither "a.b" itself nor "y.x.a.b".
func DomainMatchesCert(domain string, certDomains []string) bool {
	domain = strings.TrimRight(strings.ToLower(domain), ".")
	for _, raw := range certDomains {
		cd := strings.TrimRight(strings.ToLower(raw), ".")
		if cd == domain {
			return true
		}
		if strings.HasPrefix(cd, "*.") {
			base := cd[2:]
			if strings.HasSuffix(domain, "."+base) {
				prefix := domain[:len(domain)-len(base)-1]
				if prefix != "" && !strings.Contains(prefix, ".") {
					return true
				}
			}
		}
	}
	return false
}

// ListCertificatesFull lists every certificate in namespace with full
// config (including spec.infos, which the list endpoint may omit).
// Returns an empty slice, not an error, when the namespace is
// inaccessible or the endpoint is absent.
func (c *Client) ListCertificatesFull(ctx context.Context, namespace string) ([]ConfigDocument, error) {
	var resp listResponse
	err := c.do(ctx, "GET", c.objectURL(namespace, "certificates", ""), nil, &resp)
	if err != nil {
		if moverrors.Is(err, moverrors.KindCapability) || moverrors.Is(err, moverrors.KindAuthorization) {
			return nil, nil
		}
		return nil, err
	}

	var out []ConfigDocument
	for _, item := range resp.Items {
		name := item.resolvedName()
		if name == "" {
			continue
		}
		doc, err := c.GetConfigObject(ctx, namespace, "certificates", name)
		if err != nil {
			c.logger.Debug("cannot fetch certificate", "namespace", namespace, "name", name, "error", err)
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}
