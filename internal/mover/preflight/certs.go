package preflight

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/f5devops/xc-ns-mover/internal/mover/batch"
	"github.com/f5devops/xc-ns-mover/internal/mover/client"
)

// CertKey identifies a certificate dependency independent of the
// namespace it currently lives in.
type CertKey struct {
	Kind string
	Name string
}

// NonPortableCert is one certificate whose private key cannot be
// extracted and resubmitted via the API, plus the LBs that depend on it.
type NonPortableCert struct {
	Key     CertKey
	Config  client.ConfigDocument
	Reason  string
	LBNames []string
}

// CertFetcher is the subset of client.Client needed for cert detection.
type CertFetcher interface {
	GetConfigObject(ctx context.Context, namespace, resourceType, name string) (client.ConfigDocument, error)
	ListCertificatesFull(ctx context.Context, namespace string) ([]client.ConfigDocument, error)
}

// DetectNonPortableCerts scans every certificate dependency across plans
// and returns the subset whose private key is non-portable, with the
// list of LBs (by "namespace/name" key) that reference each.
func DetectNonPortableCerts(ctx context.Context, c CertFetcher, logger *slog.Logger, plans []batch.Plan) []NonPortableCert {
	if logger == nil {
		logger = slog.Default()
	}

	seen := make(map[CertKey]*NonPortableCert)
	var order []CertKey

	for _, p := range plans {
		lbKey := p.LB.Namespace + "/" + p.LB.Name
		for _, dep := range p.Deps {
			if dep.Kind != "certificates" {
				continue
			}
			key := CertKey{Kind: dep.Kind, Name: dep.Name}

			if existing, ok := seen[key]; ok {
				if !containsString(existing.LBNames, lbKey) {
					existing.LBNames = append(existing.LBNames, lbKey)
				}
				continue
			}

			cfg, err := c.GetConfigObject(ctx, dep.Namespace, dep.Kind, dep.Name)
			if err != nil {
				logger.Debug("cannot fetch certificate", "namespace", dep.Namespace, "name", dep.Name, "error", err)
				continue
			}

			portable, reason := client.IsCertPortable(cfg)
			if portable {
				continue
			}

			entry := &NonPortableCert{Key: key, Config: cfg, Reason: reason, LBNames: []string{lbKey}}
			seen[key] = entry
			order = append(order, key)
		}
	}

	out := make([]NonPortableCert, 0, len(order))
	for _, k := range order {
		out = append(out, *seen[k])
	}

	if len(out) > 0 {
		logger.Info("detected certificates with non-portable private keys", "count", len(out))
	}
	return out
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// ManualReworkItem describes a non-portable certificate that needs
// operator attention: either an automatically matched replacement in the
// target namespace (or "shared"), or none found at all.
type ManualReworkItem struct {
	CertKey             CertKey
	LBNames             []string
	SrcNamespace        string
	DstNamespace        string
	SecretType          string
	CertDomains         []string
	OriginalConfigJSON  string
	MatchedCertName     string
	MatchedCertNS       string
	MatchedCertDomains  []string
}

type availableCert struct {
	name    string
	ns      string
	domains []string
}

// MatchCertificates tries to find a replacement for each non-portable
// certificate already present in the target namespace or "shared", using
// three strategies in order: (1) a cert whose domains cover every domain
// of the affected LBs, (2) a cert whose domains cover the original
// cert's own domains (used when the LBs have none), (3) a cert with the
// same name. Returns the rework items plus the set of LB keys that
// remain blocked because no match was found, expanded to cover every LB
// in the same batch as a blocked one.
func MatchCertificates(
	ctx context.Context,
	c CertFetcher,
	logger *slog.Logger,
	nonPortable []NonPortableCert,
	lbDomains map[string][]string,
	lbSrcNamespace map[string]string,
	targetNamespace string,
	batches []batch.Batch,
) (map[CertKey]ManualReworkItem, map[string]bool) {
	if logger == nil {
		logger = slog.Default()
	}

	items := make(map[CertKey]ManualReworkItem)
	blocked := make(map[string]bool)

	if len(nonPortable) == 0 {
		logger.Info("no certificates with non-portable private keys found")
		return items, blocked
	}

	var available []availableCert
	targetCerts, err := c.ListCertificatesFull(ctx, targetNamespace)
	if err != nil {
		logger.Warn("cannot list certificates in target namespace", "namespace", targetNamespace, "error", err)
	}
	for _, tc := range targetCerts {
		name, _ := tc.Metadata()["name"].(string)
		if name == "" {
			continue
		}
		available = append(available, availableCert{name: name, ns: targetNamespace, domains: client.ExtractCertDomains(tc)})
	}

	sharedCerts, err := c.ListCertificatesFull(ctx, "shared")
	if err != nil {
		logger.Warn("cannot list certificates in shared namespace", "error", err)
	}
	for _, sc := range sharedCerts {
		name, _ := sc.Metadata()["name"].(string)
		if name == "" {
			continue
		}
		available = append(available, availableCert{name: name, ns: "shared", domains: client.ExtractCertDomains(sc)})
	}

	sorted := append([]NonPortableCert(nil), nonPortable...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Key.Kind != sorted[j].Key.Kind {
			return sorted[i].Key.Kind < sorted[j].Key.Kind
		}
		return sorted[i].Key.Name < sorted[j].Key.Name
	})

	for _, cert := range sorted {
		certDomains := client.ExtractCertDomains(cert.Config)

		domainSet := make(map[string]bool)
		for _, lbKey := range cert.LBNames {
			for _, d := range lbDomains[lbKey] {
				domainSet[d] = true
			}
		}
		var lbDomainList []string
		for d := range domainSet {
			lbDomainList = append(lbDomainList, d)
		}
		sort.Strings(lbDomainList)

		var match *availableCert

		if len(lbDomainList) > 0 {
			match = matchByDomains(available, lbDomainList)
		}
		if match == nil && len(lbDomainList) == 0 && len(certDomains) > 0 {
			match = matchByDomains(available, certDomains)
		}
		if match == nil {
			for i := range available {
				if available[i].name == cert.Key.Name {
					match = &available[i]
					break
				}
			}
		}

		srcNS := "?"
		if len(cert.LBNames) > 0 {
			srcNS = lbSrcNamespace[cert.LBNames[0]]
		}
		raw, _ := json.MarshalIndent(cert.Config, "", "  ")
		item := ManualReworkItem{
			CertKey:            cert.Key,
			LBNames:            append([]string(nil), cert.LBNames...),
			SrcNamespace:       srcNS,
			DstNamespace:       targetNamespace,
			SecretType:         cert.Reason,
			CertDomains:        certDomains,
			OriginalConfigJSON: string(raw),
		}

		if match != nil {
			item.MatchedCertName = match.name
			item.MatchedCertNS = match.ns
			item.MatchedCertDomains = match.domains
			logger.Info("matched replacement certificate", "original", cert.Key.Name, "matched", match.name, "namespace", match.ns)
		} else {
			logger.Info("no replacement certificate found", "original", cert.Key.Name)
			for _, lbKey := range cert.LBNames {
				blocked[lbKey] = true
			}
		}

		items[cert.Key] = item
	}

	if len(blocked) > 0 {
		for _, b := range batches {
			hit := false
			for _, lb := range b.LBs {
				if blocked[lb.Namespace+"/"+lb.Name] {
					hit = true
					break
				}
			}
			if hit {
				for _, lb := range b.LBs {
					blocked[lb.Namespace+"/"+lb.Name] = true
				}
			}
		}
		logger.Info("blocking load balancers due to unmatched certificates", "count", len(blocked))
	}

	return items, blocked
}

func matchByDomains(available []availableCert, domains []string) *availableCert {
	for i := range available {
		if len(available[i].domains) == 0 {
			continue
		}
		allMatch := true
		for _, d := range domains {
			if !client.DomainMatchesCert(d, available[i].domains) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return &available[i]
		}
	}
	return nil
}

// LBDomainsFromPlans builds the lbKey -> domains map MatchCertificates
// needs, from already-fetched LB configs keyed by "namespace/name".
func LBDomainsFromPlans(lbConfigs map[string]client.ConfigDocument) map[string][]string {
	out := make(map[string][]string, len(lbConfigs))
	for key, doc := range lbConfigs {
		out[key] = client.ExtractLBDomains(doc)
	}
	return out
}
