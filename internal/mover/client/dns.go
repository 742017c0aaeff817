package client

import (
	"context"
	"strings"

	moverrors "github.com/f5devops/xc-ns-mover/internal/mover/errors"
)

// ListDNSZones lists every DNS zone in the system namespace with full
// config, for managed-record detection. Returns an empty slice, not an
// error, on 403/404.
func (c *Client) ListDNSZones(ctx context.Context) ([]ConfigDocument, error) {
	url := c.url("/api/config/dns/namespaces/system/dns_zones")
	var resp listResponse
	err := c.do(ctx, "GET", url, nil, &resp)
	if err != nil {
		if moverrors.Is(err, moverrors.KindCapability) || moverrors.Is(err, moverrors.KindAuthorization) {
			c.logger.Warn("cannot list dns zones, managed dns detection unavailable", "error", err)
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
		zoneURL := c.url("/api/config/dns/namespaces/system/dns_zones/%s", name)
		var zone ConfigDocument
		if err := c.do(ctx, "GET", zoneURL, nil, &zone); err != nil {
			c.logger.Debug("cannot fetch dns zone", "name", name, "error", err)
			continue
		}
		out = append(out, zone)
	}
	return out, nil
}

// managedRecordCandidateFields are the field names tried, in order, for
// the "allow LB managed DNS records" flag under spec.primary. The exact
// field is tenant-version-dependent, so both known spellings are probed
// (Design Note §9 open question a). Which field was found is not logged.
var managedRecordCandidateFields = []string{
	"allow_http_lb_managed_dns_records",
	"allow_lb_managed_records",
}

// ExtractManagedZoneDomains returns the lowercased zone domains that have
// LB-managed record creation enabled.
func ExtractManagedZoneDomains(zones []ConfigDocument) map[string]bool {
	managed := make(map[string]bool)

	for _, zone := range zones {
		meta := zone.Metadata()
		spec := zone.Spec()
		zoneName, _ := meta["name"].(string)
		if zoneName == "" {
			zoneName, _ = zone["name"].(string)
		}

		primary, _ := spec["primary"].(map[string]any)
		zoneDomain := firstNonEmptyString(
			nestedString(primary, "soa_parameters", "domain"),
			stringField(primary, "domain"),
			zoneName,
		)
		zoneDomain = strings.TrimRight(strings.ToLower(zoneDomain), ".")

		isManaged := false
		for _, field := range managedRecordCandidateFields {
			v, ok := primary[field]
			if !ok || v == nil {
				continue
			}
			if _, isMap := v.(map[string]any); isMap {
				isManaged = true
				break
			}
			if b, isBool := v.(bool); isBool && b {
				isManaged = true
				break
			}
		}

		if isManaged && zoneDomain != "" {
			managed[zoneDomain] = true
		}
	}
	return managed
}

func firstNonEmptyString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func nestedString(m map[string]any, outer, inner string) string {
	if m == nil {
		return ""
	}
	sub, _ := m[outer].(map[string]any)
	return stringField(sub, inner)
}

// DomainIsUnderZone reports whether domain equals or is a subdomain of
// zoneDomain.
func DomainIsUnderZone(domain, zoneDomain string) bool {
	domain = strings.TrimRight(strings.ToLower(domain), ".")
	zoneDomain = strings.TrimRight(strings.ToLower(zoneDomain), ".")
	return domain == zoneDomain || strings.HasSuffix(domain, "."+zoneDomain)
}
