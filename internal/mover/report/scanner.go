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
)

// scannerCSS extends baseCSS with the namespace bar chart, grouped LB
// table, and scan-configuration callout used only by the scan report.
const scannerCSS = `
  .card-primary .num { color: #0d6efd; } .card-ns .num { color: #6c757d; }
  .card-ns-active .num { color: #198754; } .card-ns-empty .num { color: #adb5bd; }
  .card-type .num { color: #6f42c1; }

  .bar-chart { background: #fff; border: 1px solid #dee2e6; border-radius: 8px;
               padding: 1rem 1.25rem; margin-bottom: 1.5rem; box-shadow: 0 1px 3px rgba(0,0,0,0.04); }
  .bar-row { display: flex; align-items: center; gap: 0.6rem; margin-bottom: 0.4rem; font-size: 0.85rem; }
  .bar-label { width: 180px; flex-shrink: 0; overflow: hidden; text-overflow: ellipsis; white-space: nowrap; }
  .bar-track { flex: 1; background: #e9ecef; border-radius: 4px; height: 0.9rem; overflow: hidden; }
  .bar-fill { background: #0d6efd; height: 100%; }
  .bar-count { width: 2.5rem; text-align: right; color: #555; }

  .td-lb-name { font-weight: 600; }
  .ns-group-row td { background: #f0f4ff; font-weight: 600; border-top: 2px solid #dee2e6; }
  .ns-group-count { float: right; color: #888; font-weight: 400; font-size: 0.78rem; }
  .type-badge { display: inline-block; padding: 0.1rem 0.5rem; border-radius: 10px; font-size: 0.75rem; font-weight: 600; }
  .badge-http { background: #e2e3e5; color: #41464b; }
  .badge-https { background: #d1e7dd; color: #0f5132; }

  .csv-section { margin-bottom: 1.5rem; }
  .csv-header { display: flex; justify-content: space-between; align-items: center;
                 background: #2d2d2d; color: #ddd; padding: 0.5rem 1rem; border-radius: 6px 6px 0 0;
                 border: 1px solid #495057; }
  .csv-header .csv-title { font-weight: 600; }
  .csv-header .csv-hint { font-size: 0.78rem; opacity: 0.7; }
  .csv-block { background: #1e1e1e; color: #d4d4d4; padding: 1rem; border-radius: 0 0 6px 6px;
               overflow-x: auto; font-size: 0.8rem; line-height: 1.5; margin: 0; white-space: pre;
               border: 1px solid #495057; border-top: none; max-height: 400px; overflow-y: auto; }

  .cfg-details { margin-bottom: 1.5rem; }
  .cfg-details > summary { cursor: pointer; padding: 0.6rem 1rem; background: #fff;
                            border: 1px solid #dee2e6; border-radius: 8px; font-weight: 600;
                            font-size: 0.9rem; color: #333; box-shadow: 0 1px 3px rgba(0,0,0,0.04); }
  .cfg-body { background: #fff; border: 1px solid #dee2e6; border-top: none;
              border-radius: 0 0 8px 8px; padding: 1rem 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,0.04); }
  .cfg-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
              gap: 0.75rem 1.5rem; margin-bottom: 0.75rem; }
  .cfg-item { display: flex; flex-direction: column; gap: 0.1rem; }
  .cfg-item .cfg-label { font-size: 0.72rem; text-transform: uppercase; letter-spacing: 0.04em;
                          color: #888; font-weight: 600; }
  .cfg-item .cfg-value { font-size: 0.9rem; font-weight: 500; color: #1a1a1a; }
  .cfg-desc { font-size: 0.85rem; color: #555; margin-bottom: 0.5rem; }
  .cfg-row { margin-bottom: 0.4rem; }
  .cfg-row > .cfg-label { font-size: 0.78rem; font-weight: 600; color: #555; margin-right: 0.4rem; }
  .cfg-tag { display: inline-block; padding: 0.12rem 0.5rem; border-radius: 10px; font-size: 0.75rem;
             font-weight: 600; margin: 0.1rem 0.15rem; }
  .cfg-tag-include { background: #d4edda; color: #155724; border: 1px solid #b7dfb9; }
  .cfg-tag-exclude { background: #f8d7da; color: #721c24; border: 1px solid #f1aeb5; }
`

const copyCsvJS = `
<script>
function copyCsv(btn) {
  var pre = document.getElementById('csv-content');
  if (!pre) return;
  _doCopy(btn, pre.textContent || pre.innerText, 'Copy CSV');
}
</script>`

// NamespaceScanRow is one load balancer found while scanning a namespace.
type NamespaceScanRow struct {
	Namespace string
	LBName    string
	LBKind    string // e.g. "http_loadbalancer"
}

// ScanReporter writes HTML namespace-scan reports to a directory. It is
// the discovery counterpart to Reporter: where Reporter documents a move
// already planned or executed, ScanReporter documents what exists on the
// tenant so an operator can build a move list.
type ScanReporter struct {
	OutputDir string
}

// NewScanReporter returns a ScanReporter that writes into outputDir,
// creating it if necessary on first Generate call.
func NewScanReporter(outputDir string) *ScanReporter {
	return &ScanReporter{OutputDir: outputDir}
}

// Generate renders the namespace scan report and writes it to OutputDir,
// returning the path written.
func (r *ScanReporter) Generate(
	tenant string,
	nsScanned []string,
	totalNSOnTenant int,
	rows []NamespaceScanRow,
	include, exclude []string,
) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	timestamp := time.Now()
	body := buildScanBody(tenant, nsScanned, totalNSOnTenant, rows, include, exclude)

	metaLine := fmt.Sprintf(
		`Tenant: <strong>%s</strong> &nbsp;|&nbsp; %s &nbsp;|&nbsp; %d namespace(s) scanned &nbsp;|&nbsp; %d load balancer(s) found`,
		html.EscapeString(tenant), html.EscapeString(timestamp.Format("2006-01-02 15:04:05")),
		len(nsScanned), len(rows))

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		Title:    fmt.Sprintf("Scanner Report &mdash; %s", html.EscapeString(tenant)),
		MetaLine: metaLine,
		CSS:      baseCSS + scannerCSS,
		Body:     body + copyCsvJS,
	}); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}

	path := filepath.Join(r.OutputDir, fmt.Sprintf("scanner-report-%s.html", timestamp.Format("20060102-150405")))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func buildScanBody(tenant string, nsScanned []string, totalNSOnTenant int, rows []NamespaceScanRow, include, exclude []string) string {
	nsWithLBs := map[string]int{}
	typeCounts := map[string]int{}
	for _, row := range rows {
		nsWithLBs[row.Namespace]++
		typeCounts[row.LBKind]++
	}
	nsWithLBsCount := len(nsWithLBs)
	nsEmptyCount := len(nsScanned) - nsWithLBsCount

	configSection := buildScanConfigSection(tenant, len(nsScanned), totalNSOnTenant, include, exclude)
	summaryCards := buildScanSummaryCards(len(rows), len(nsScanned), nsWithLBsCount, nsEmptyCount, typeCounts)
	chart := buildScanBarChart(nsWithLBs)
	table := buildScanTable(rows, nsWithLBs)
	csvBlock := buildScanCSVBlock(rows)

	return fmt.Sprintf(`
%s

%s

%s

<h2>All Load Balancers</h2>

%s

<h2>CSV for Mover</h2>
<p style="font-size:0.88rem;color:#555;">Copy this into your move-list CSV and remove the rows you don't need.</p>
%s
`, configSection, summaryCards, chart, table, csvBlock)
}

func buildScanConfigSection(tenant string, nsCount, totalNSOnTenant int, include, exclude []string) string {
	hasInclude := len(include) > 0
	hasExclude := len(exclude) > 0

	var filterMode, filterDesc string
	switch {
	case hasInclude && hasExclude:
		filterMode = "Include + Exclude"
		filterDesc = fmt.Sprintf(
			"Started from <strong>%d</strong> included namespace(s), then removed <strong>%d</strong> excluded namespace(s).",
			len(include), len(exclude))
	case hasInclude:
		filterMode = "Include list"
		filterDesc = fmt.Sprintf("Only the <strong>%d</strong> listed namespace(s) were scanned.", len(include))
	case hasExclude:
		filterMode = "Exclude list"
		filterDesc = fmt.Sprintf("All namespaces were scanned <strong>except</strong> <strong>%d</strong> excluded namespace(s).", len(exclude))
	default:
		filterMode = "No filter"
		filterDesc = "All namespaces accessible by the API token were scanned."
	}

	includeTags := scanTagRow("Include", include, "cfg-tag-include")
	excludeTags := scanTagRow("Exclude", exclude, "cfg-tag-exclude")

	return fmt.Sprintf(`
<details class="cfg-details" open>
<summary>Scan Configuration</summary>
<div class="cfg-body">
  <div class="cfg-grid">
    <div class="cfg-item"><span class="cfg-label">Tenant</span><span class="cfg-value">%s</span></div>
    <div class="cfg-item"><span class="cfg-label">Namespaces on tenant</span><span class="cfg-value">%d</span></div>
    <div class="cfg-item"><span class="cfg-label">Namespaces scanned</span><span class="cfg-value">%d</span></div>
    <div class="cfg-item"><span class="cfg-label">Filter mode</span><span class="cfg-value">%s</span></div>
  </div>
  <div class="cfg-desc">%s</div>
  %s
  %s
</div>
</details>`, html.EscapeString(tenant), totalNSOnTenant, nsCount, filterMode, filterDesc, includeTags, excludeTags)
}

func scanTagRow(label string, names []string, tagClass string) string {
	if len(names) == 0 {
		return ""
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var tags []string
	for _, n := range sorted {
		tags = append(tags, fmt.Sprintf(`<span class="cfg-tag %s">%s</span>`, tagClass, html.EscapeString(n)))
	}
	return fmt.Sprintf(`<div class="cfg-row"><span class="cfg-label">%s:</span> %s</div>`, label, strings.Join(tags, " "))
}

func buildScanSummaryCards(lbCount, nsCount, nsWithLBsCount, nsEmptyCount int, typeCounts map[string]int) string {
	var b strings.Builder
	b.WriteString(`<div class="summary">`)
	fmt.Fprintf(&b, `<div class="card card-primary"><div class="num">%d</div><div class="label">Load Balancers</div></div>`, lbCount)
	fmt.Fprintf(&b, `<div class="card card-ns"><div class="num">%d</div><div class="label">Namespaces Scanned</div></div>`, nsCount)
	fmt.Fprintf(&b, `<div class="card card-ns-active"><div class="num">%d</div><div class="label">With LBs</div></div>`, nsWithLBsCount)
	fmt.Fprintf(&b, `<div class="card card-ns-empty"><div class="num">%d</div><div class="label">Empty</div></div>`, nsEmptyCount)

	kinds := make([]string, 0, len(typeCounts))
	for k := range typeCounts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, `<div class="card card-type"><div class="num">%d</div><div class="label">%s</div></div>`,
			typeCounts[k], html.EscapeString(lbKindTitle(k)))
	}
	b.WriteString(`</div>`)
	return b.String()
}

func buildScanBarChart(nsWithLBs map[string]int) string {
	if len(nsWithLBs) == 0 {
		return ""
	}
	names := make([]string, 0, len(nsWithLBs))
	for n := range nsWithLBs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if nsWithLBs[names[i]] != nsWithLBs[names[j]] {
			return nsWithLBs[names[i]] > nsWithLBs[names[j]]
		}
		return names[i] < names[j]
	})

	maxCount := 1
	for _, c := range nsWithLBs {
		if c > maxCount {
			maxCount = c
		}
	}

	var rows strings.Builder
	for _, name := range names {
		count := nsWithLBs[name]
		pct := count * 100 / maxCount
		fmt.Fprintf(&rows, `<div class="bar-row"><div class="bar-label">%s</div><div class="bar-track"><div class="bar-fill" style="width:%d%%"></div></div><div class="bar-count">%d</div></div>`+"\n",
			html.EscapeString(name), pct, count)
	}
	return fmt.Sprintf("<h2>Load Balancers per Namespace</h2>\n<div class=\"bar-chart\">\n%s</div>", rows.String())
}

func buildScanTable(rows []NamespaceScanRow, nsWithLBs map[string]int) string {
	sorted := append([]NamespaceScanRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Namespace != sorted[j].Namespace {
			return sorted[i].Namespace < sorted[j].Namespace
		}
		return sorted[i].LBName < sorted[j].LBName
	})

	var body strings.Builder
	prevNS := ""
	first := true
	for _, row := range sorted {
		if first || row.Namespace != prevNS {
			fmt.Fprintf(&body, `<tr class="ns-group-row"><td colspan="3"><strong>%s</strong><span class="ns-group-count">%d LB(s)</span></td></tr>`+"\n",
				html.EscapeString(row.Namespace), nsWithLBs[row.Namespace])
			prevNS = row.Namespace
			first = false
		}
		badgeClass := "badge-http"
		if strings.Contains(row.LBKind, "https") {
			badgeClass = "badge-https"
		}
		fmt.Fprintf(&body, `<tr><td class="td-lb-name">%s</td><td>%s</td><td><span class="type-badge %s">%s</span></td></tr>`+"\n",
			html.EscapeString(row.LBName), html.EscapeString(row.Namespace), badgeClass, html.EscapeString(lbKindTitle(row.LBKind)))
	}

	return fmt.Sprintf(`
<table>
<thead><tr><th>LB Name</th><th>Namespace</th><th>Type</th></tr></thead>
<tbody>
%s
</tbody>
</table>`, body.String())
}

func buildScanCSVBlock(rows []NamespaceScanRow) string {
	lines := []string{"namespace,lb_name"}
	sorted := append([]NamespaceScanRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Namespace != sorted[j].Namespace {
			return sorted[i].Namespace < sorted[j].Namespace
		}
		return sorted[i].LBName < sorted[j].LBName
	})
	for _, row := range sorted {
		lines = append(lines, fmt.Sprintf("%s,%s", row.Namespace, row.LBName))
	}
	csvText := strings.Join(lines, "\n")

	return fmt.Sprintf(`
<div class="csv-section">
  <div class="csv-header">
    <span><span class="csv-title">move-list.csv</span><span class="csv-hint">&nbsp;&mdash; %d row(s), ready to paste</span></span>
    <button class="copy-btn" onclick="copyCsv(this)">Copy CSV</button>
  </div>
  <pre class="csv-block" id="csv-content">%s</pre>
</div>`, len(rows), html.EscapeString(csvText))
}

// lbKindTitle renders an LB kind ("http_loadbalancer") as a display
// label ("Http Loadbalancer").
func lbKindTitle(kind string) string {
	parts := strings.Split(kind, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
