package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/f5devops/xc-ns-mover/internal/mover/exec"
	"github.com/f5devops/xc-ns-mover/internal/mover/preflight"
)

// Reporter writes HTML move reports to a directory.
type Reporter struct {
	OutputDir string
}

// New returns a Reporter that writes into outputDir, creating it if
// necessary on first Generate call.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// Generate renders the move (or dry-run) report and writes it to
// OutputDir, returning the path written.
func (r *Reporter) Generate(
	tenant, targetNamespace string,
	results []exec.LoadBalancerResult,
	dryRun bool,
	batchGraphs []BatchGraphData,
	reworkItems []preflight.ManualReworkItem,
) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	timestamp := time.Now()
	body := buildBody(tenant, targetNamespace, results, dryRun, batchGraphs, reworkItems, timestamp)

	title := "LB Mover Report"
	if dryRun {
		title = "Pre-Migration Report"
	}
	metaLine := fmt.Sprintf(
		`Tenant: <strong>%s</strong> &nbsp;|&nbsp; Target namespace: <strong>%s</strong> &nbsp;|&nbsp; %s`,
		html.EscapeString(tenant), html.EscapeString(targetNamespace),
		html.EscapeString(timestamp.Format("2006-01-02 15:04:05")))

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		Title:    fmt.Sprintf("%s &mdash; %s", title, html.EscapeString(tenant)),
		MetaLine: metaLine,
		CSS:      baseCSS,
		Body:     body,
	}); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	name := "move-report"
	if dryRun {
		name = "dry-run-report"
	}
	path := filepath.Join(r.OutputDir, fmt.Sprintf("%s-%s.html", name, timestamp.Format("20060102-150405")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func buildBody(
	tenant, targetNamespace string,
	results []exec.LoadBalancerResult,
	dryRun bool,
	batchGraphs []BatchGraphData,
	reworkItems []preflight.ManualReworkItem,
	_ time.Time,
) string {
	var moved, dryrunCount, failed, skipped, reverted, blocked int
	hasMovedOrReverted := false
	for _, res := range results {
		switch res.Status {
		case exec.StatusMoved:
			moved++
			hasMovedOrReverted = true
		case exec.StatusDryRun:
			dryrunCount++
		case exec.StatusFailed:
			failed++
		case exec.StatusSkipped:
			skipped++
		case exec.StatusReverted:
			reverted++
			hasMovedOrReverted = true
		case exec.StatusBlocked:
			blocked++
		}
	}

	var warningBanner string
	if hasMovedOrReverted {
		warningBanner = `<div class="warning-banner">
  <strong>&#9888; Important &mdash; CNAME &amp; ACME / Let's Encrypt Warning</strong>
  <p>When a load balancer is moved to a new namespace (or reverted back), F5 XC assigns a
  <strong>new CNAME (host_name)</strong>. If you use <strong>Let's Encrypt (auto-cert)</strong>,
  the ACME challenge domain changes too.</p>
  <ul>
    <li>Update DNS records to point to the <strong>new CNAME</strong> &mdash; see the
        DNS Changes section below for the full list.</li>
    <li>If an LB was <strong>reverted</strong> after a failed move, its CNAME may differ from the
        original &mdash; check the value carefully.</li>
    <li>Let's Encrypt certificates re-issue automatically once DNS propagates, but there may be a
        brief window without a valid certificate.</li>
  </ul>
</div>`
	}

	lbRows := buildLBRows(results, dryRun)
	dnsSection := buildDNSSection(results)
	reworkSection := buildReworkSection(reworkItems, targetNamespace)
	depSection := buildDepSection(results, batchGraphs)
	configSections := buildConfigSections(results)
	backupSections := buildBackupSections(results)

	reworkTotal := len(reworkItems)
	reworkCard := ""
	if reworkTotal > 0 {
		reworkCard = fmt.Sprintf(`<div class="card card-rework"><div class="num">%d</div><div class="label">Cert Rework</div></div>`, reworkTotal)
	}

	var summaryCards string
	if dryRun {
		summaryCards = fmt.Sprintf(`
<div class="card card-dryrun"><div class="num">%d</div><div class="label">Planned</div></div>
<div class="card card-blocked"><div class="num">%d</div><div class="label">Blocked</div></div>
<div class="card card-skipped"><div class="num">%d</div><div class="label">Skipped</div></div>
%s
<div class="card"><div class="num">%d</div><div class="label">Total</div></div>`,
			dryrunCount, blocked, skipped, reworkCard, len(results))
	} else {
		summaryCards = fmt.Sprintf(`
<div class="card card-moved"><div class="num">%d</div><div class="label">Moved</div></div>
<div class="card card-failed"><div class="num">%d</div><div class="label">Failed</div></div>
<div class="card card-blocked"><div class="num">%d</div><div class="label">Blocked</div></div>
<div class="card card-reverted"><div class="num">%d</div><div class="label">Reverted</div></div>
<div class="card card-skipped"><div class="num">%d</div><div class="label">Skipped</div></div>
%s
<div class="card"><div class="num">%d</div><div class="label">Total</div></div>`,
			moved, failed, blocked, reverted, skipped, reworkCard, len(results))
	}

	return fmt.Sprintf(`
%s

<h2>Load Balancers</h2>
<div class="summary">
%s
</div>

<table>
<thead><tr>
  <th>HTTP LB Name</th><th>Namespace (old)</th><th>Namespace (new)</th>
  <th>TLS</th><th>Status</th><th>Details</th>
</tr></thead>
<tbody>
%s
</tbody>
</table>

%s

%s

%s

%s

%s
`, warningBanner, summaryCards, lbRows, dnsSection, reworkSection, depSection, configSections, backupSections)
}

func buildLBRows(results []exec.LoadBalancerResult, dryRun bool) string {
	var rows []string
	for _, res := range results {
		name := res.LBName
		if res.NewLBName != "" && res.NewLBName != res.LBName {
			name = fmt.Sprintf("%s &rarr; %s", html.EscapeString(res.LBName), html.EscapeString(res.NewLBName))
		} else {
			name = html.EscapeString(name)
		}
		details := html.EscapeString(res.Error)
		if details == "" && dryRun {
			details = fmt.Sprintf("%d dependencies", len(res.Dependencies))
		}
		rows = append(rows, fmt.Sprintf(
			`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td class="status-%s">%s</td><td>%s</td></tr>`,
			name, html.EscapeString(res.SrcNamespace), html.EscapeString(res.DstNamespace),
			html.EscapeString(res.TLSMode), res.Status, strings.ToUpper(res.Status), details))
	}
	return strings.Join(rows, "\n")
}

func buildDNSSection(results []exec.LoadBalancerResult) string {
	var rows []string
	for _, res := range results {
		if res.CNAMEOld == "" && res.CNAMENew == "" {
			continue
		}
		managed := "manual update required"
		if res.DNSManaged {
			managed = "XC-managed (no action needed)"
		}
		rows = append(rows, fmt.Sprintf(
			`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(res.LBName), html.EscapeString(res.CNAMEOld),
			html.EscapeString(res.CNAMENew), managed))
	}
	if len(rows) == 0 {
		return ""
	}
	return fmt.Sprintf(`
<h2 id="dns-changes">DNS Changes</h2>
<table>
<thead><tr><th>HTTP LB Name</th><th>Old CNAME</th><th>New CNAME</th><th>DNS Zone</th></tr></thead>
<tbody>
%s
</tbody>
</table>`, strings.Join(rows, "\n"))
}

func buildReworkSection(items []preflight.ManualReworkItem, targetNS string) string {
	if len(items) == 0 {
		return ""
	}
	var rows []string
	for _, it := range items {
		match := "no match found &mdash; create manually"
		if it.MatchedCertName != "" {
			match = fmt.Sprintf("matched %s in %s", html.EscapeString(it.MatchedCertName), html.EscapeString(it.MatchedCertNS))
		}
		rows = append(rows, fmt.Sprintf(
			`<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(it.CertKey.Name), html.EscapeString(strings.Join(it.LBNames, ", ")),
			html.EscapeString(it.SecretType), html.EscapeString(strings.Join(it.CertDomains, ", ")), match))
	}
	return fmt.Sprintf(`
<div class="rework-banner">
  <strong>&#128295; Manual Certificate Rework Required</strong>
  <p>The certificates below carry secret material (blindfolded, clear, vault, or wingman private keys)
  that cannot be read or recreated via the API. Create or point to an equivalent certificate in
  <strong>%s</strong> before finishing the move.</p>
</div>
<table>
<thead><tr><th>Certificate</th><th>Used By</th><th>Secret Type</th><th>Domains</th><th>Suggested Match</th></tr></thead>
<tbody>
%s
</tbody>
</table>`, html.EscapeString(targetNS), strings.Join(rows, "\n"))
}

func buildDepSection(results []exec.LoadBalancerResult, graphs []BatchGraphData) string {
	var rows []string
	for _, res := range results {
		for _, dep := range res.Dependencies {
			name := dep.Name
			if dep.NewName != "" && dep.NewName != dep.Name {
				name = fmt.Sprintf("%s &rarr; %s", html.EscapeString(dep.Name), html.EscapeString(dep.NewName))
			} else {
				name = html.EscapeString(name)
			}
			rows = append(rows, fmt.Sprintf(
				`<tr><td>%s</td><td>%s</td><td>%s</td><td class="status-%s">%s</td><td>%s</td></tr>`,
				html.EscapeString(res.LBName), html.EscapeString(friendlyType(dep.ResourceType)),
				name, dep.Status, strings.ToUpper(dep.Status), html.EscapeString(dep.Error)))
		}
	}

	var graphsHTML strings.Builder
	sortedGraphs := append([]BatchGraphData(nil), graphs...)
	sort.Slice(sortedGraphs, func(i, j int) bool { return sortedGraphs[i].BatchIndex < sortedGraphs[j].BatchIndex })
	for _, g := range sortedGraphs {
		graphsHTML.WriteString(fmt.Sprintf("<h3>Batch %d</h3>\n%s\n", g.BatchIndex+1, RenderBatchSVG(g)))
	}

	if len(rows) == 0 && graphsHTML.Len() == 0 {
		return ""
	}
	return fmt.Sprintf(`
<h2>Dependencies</h2>
%s
<table>
<thead><tr><th>HTTP LB Name</th><th>Type</th><th>Name</th><th>Status</th><th>Details</th></tr></thead>
<tbody>
%s
</tbody>
</table>`, graphsHTML.String(), strings.Join(rows, "\n"))
}

func buildConfigSections(results []exec.LoadBalancerResult) string {
	var sections []string
	for _, res := range results {
		if res.PlannedConfigJSON == "" {
			continue
		}
		sections = append(sections, jsonBlock(fmt.Sprintf("Planned config: %s", res.LBName), res.PlannedConfigJSON))
	}
	if len(sections) == 0 {
		return ""
	}
	return "<h2>Planned Configuration</h2>\n" + strings.Join(sections, "\n")
}

func buildBackupSections(results []exec.LoadBalancerResult) string {
	var sections []string
	for _, res := range results {
		if res.BackupJSON == "" {
			continue
		}
		sections = append(sections, jsonBlock(fmt.Sprintf("Backup: %s", res.LBName), res.BackupJSON))
	}
	if len(sections) == 0 {
		return ""
	}
	return "<h2>Backups</h2>\n" + strings.Join(sections, "\n")
}

func jsonBlock(title, jsonText string) string {
	return fmt.Sprintf(`
<h3>%s</h3>
<div class="json-block-wrapper">
  <button class="copy-btn" onclick="copyJson(this)">Copy JSON</button>
  <pre class="json-block">%s</pre>
</div>`, html.EscapeString(title), html.EscapeString(jsonText))
}
