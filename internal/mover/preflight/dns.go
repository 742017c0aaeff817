package preflight

import (
	"context"
	"log/slog"
	"strings"

	"github.com/f5devops/xc-ns-mover/internal/mover/client"
)

// ZoneLister is the subset of client.Client needed for DNS zone scanning.
type ZoneLister interface {
	ListDNSZones(ctx context.Context) ([]client.ConfigDocument, error)
}

// DNSScanResult is the outcome of Phase 0e: which LBs have every domain
// covered by an XC-managed DNS zone, meaning no manual CNAME record
// needs to be recreated after the move.
type DNSScanResult struct {
	ZoneConfigs   []client.ConfigDocument
	ManagedZones  map[string]bool
	ManagedLBKeys map[string]bool
}

// ScanDNSZones checks for XC-managed DNS zones and flags every
// Let's-Encrypt LB whose domains are entirely covered by one.
// lbConfigs is keyed by "namespace/name".
func ScanDNSZones(ctx context.Context, c ZoneLister, logger *slog.Logger, lbConfigs map[string]client.ConfigDocument) DNSScanResult {
	if logger == nil {
		logger = slog.Default()
	}

	zones, err := c.ListDNSZones(ctx)
	if err != nil {
		logger.Warn("could not list dns zones", "error", err)
	}
	managed := client.ExtractManagedZoneDomains(zones)

	if len(zones) == 0 && len(managed) == 0 {
		logger.Warn("could not read dns zones, assuming no xc-managed dns; " +
			"grant read access to dns_zones to enable managed dns detection")
	}

	managedLBs := make(map[string]bool)
	leCount := 0
	for key, doc := range lbConfigs {
		mode := client.TLSMode(doc)
		if !strings.Contains(strings.ToLower(mode), "encrypt") {
			continue
		}
		leCount++

		domains := client.ExtractLBDomains(doc)
		if len(domains) == 0 {
			continue
		}

		allManaged := true
		for _, d := range domains {
			underAny := false
			for zone := range managed {
				if client.DomainIsUnderZone(d, zone) {
					underAny = true
					break
				}
			}
			if !underAny {
				allManaged = false
				break
			}
		}
		if allManaged {
			managedLBs[key] = true
			logger.Info("all domains under managed dns zone", "lb", key)
		}
	}

	logger.Info("dns zone scan complete", "managed_lb_count", len(managedLBs), "lets_encrypt_lb_count", leCount)

	return DNSScanResult{ZoneConfigs: zones, ManagedZones: managed, ManagedLBKeys: managedLBs}
}
