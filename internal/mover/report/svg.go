package report

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

var depTypeShort = map[string]string{
	"Origin Pool":         "OP",
	"Health Check":        "HC",
	"TLS Certificate":     "Cert",
	"App Firewall":        "FW",
	"Service Policy":      "SP",
	"API Definition":      "API",
	"IP Prefix Set":       "IP",
	"Rate Limiter":        "RL",
	"User Identification": "UID",
}

func depLabel(key DepKey) string {
	friendly := friendlyType(key.Kind)
	short, ok := depTypeShort[friendly]
	if !ok {
		short = friendly
		if len(short) > 4 {
			short = short[:4]
		}
	}
	label := fmt.Sprintf("%s: %s", short, key.Name)
	const maxLen = 24
	if len(label) > maxLen {
		cut := maxLen - len(short) - 4
		if cut < 0 {
			cut = 0
		}
		if cut > len(key.Name) {
			cut = len(key.Name)
		}
		label = fmt.Sprintf("%s: %s...", short, key.Name[:cut])
	}
	return label
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// RenderBatchSVG renders a batch dependency graph as an inline SVG
// string. Single-LB batches with no shared deps use a compact vertical
// chain; everything else uses a three-tier column layout.
func RenderBatchSVG(b BatchGraphData) string {
	var tier1, tier2 []DepKey
	seen := map[DepKey]bool{}

	for _, lb := range b.LBNames {
		for _, dk := range b.LBToDeps[lb] {
			if !seen[dk] {
				seen[dk] = true
				tier1 = append(tier1, dk)
			}
		}
	}
	for _, parent := range tier1 {
		for _, child := range b.DepChildren[parent] {
			if !seen[child] {
				seen[child] = true
				tier2 = append(tier2, child)
			}
		}
	}

	if len(b.LBNames) == 1 && len(b.SharedDeps) == 0 {
		return renderChainSVG(b.LBNames[0], b.LBToDeps[b.LBNames[0]], b.DepChildren, b.ExternalDeps)
	}
	return renderFullGraphSVG(b, tier1, tier2)
}

func renderChainSVG(lbName string, deps []DepKey, depChildren map[DepKey][]DepKey, external map[DepKey]bool) string {
	type node struct {
		label string
		ntype string
		key   *DepKey
	}
	var chain []node
	chain = append(chain, node{lbName, "lb", nil})
	for _, dk := range deps {
		dk := dk
		chain = append(chain, node{depLabel(dk), "dep", &dk})
		for _, ck := range depChildren[dk] {
			ck := ck
			chain = append(chain, node{depLabel(ck), "leaf", &ck})
		}
	}

	const boxW, boxH, vGap, padX, padY = 200, 34, 16, 20, 16
	hasExt := false
	for _, n := range chain {
		if n.key != nil && external[*n.key] {
			hasExt = true
			break
		}
	}
	legendH := 0
	if hasExt {
		legendH = 24
	}

	svgW := boxW + 2*padX
	n := len(chain)
	svgH := n*boxH + (n-1)*vGap + 2*padY + legendH

	colors := map[string][2]string{
		"lb":   {"#0d6efd", "#ffffff"},
		"dep":  {"#e0f2f1", "#1a1a1a"},
		"leaf": {"#f5f5f5", "#1a1a1a"},
	}
	borders := map[string]string{"lb": "none", "dep": "#26a69a", "leaf": "#9e9e9e"}

	var parts []string
	parts = append(parts, `<defs><marker id="arrow" markerWidth="8" markerHeight="6" `+
		`refX="8" refY="3" orient="auto" markerUnits="strokeWidth">`+
		`<path d="M0,0 L8,3 L0,6" fill="#90a4ae" /></marker></defs>`)

	prevBottom := -1.0
	for i, nd := range chain {
		cx := float64(padX) + float64(boxW)/2
		y := float64(padY) + float64(i)*(float64(boxH)+float64(vGap))
		isExt := nd.key != nil && external[*nd.key]

		var fill, border, strokeW string
		if isExt {
			fill, border, strokeW = "#fdecea", "#dc3545", "2.5"
		} else {
			fill = colors[nd.ntype][0]
			border = borders[nd.ntype]
			strokeW = "1.5"
		}

		if prevBottom >= 0 {
			parts = append(parts, fmt.Sprintf(
				`<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="#90a4ae" stroke-width="1.5" marker-end="url(#arrow)" />`,
				cx, prevBottom, cx, y))
		}

		display := truncate(nd.label, 26)
		borderAttr := ""
		if border != "none" {
			borderAttr = fmt.Sprintf(` stroke="%s" stroke-width="%s"`, border, strokeW)
		}
		textColor := colors[nd.ntype][1]
		if isExt {
			textColor = "#1a1a1a"
		}
		fontW := ""
		fontSize := "11"
		if nd.ntype == "lb" {
			fontW = ` font-weight="600"`
			fontSize = "12"
		}
		parts = append(parts, fmt.Sprintf(
			`<rect x="%d" y="%g" width="%d" height="%d" rx="6" fill="%s"%s />`+
				`<text x="%g" y="%g" text-anchor="middle" fill="%s" font-size="%s"%s>%s</text>`,
			padX, y, boxW, boxH, fill, borderAttr,
			cx, y+float64(boxH)/2+4, textColor, fontSize, fontW, html.EscapeString(display)))
		prevBottom = y + float64(boxH)
	}

	legend := ""
	if hasExt {
		ly := float64(padY) + float64(n)*float64(boxH) + float64(n-1)*float64(vGap) + 8
		legend = fmt.Sprintf(
			`<g transform="translate(10, %g)"><rect x="0" y="0" width="14" height="14" rx="3" `+
				`fill="#fdecea" stroke="#dc3545" stroke-width="2.5" />`+
				`<text x="20" y="11" font-size="10" fill="#666">used by external object (not in move list)</text></g>`,
			ly)
	}

	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%g" `+
			`style="font-family: -apple-system, BlinkMacSystemFont, sans-serif; background: #fff; `+
			`border: 1px solid #dee2e6; border-radius: 6px; margin-bottom: 1rem;">%s%s</svg>`,
		svgW, svgH, strings.Join(parts, "\n"), legend)
}

func renderFullGraphSVG(b BatchGraphData, tier1, tier2 []DepKey) string {
	const boxW, boxH, hGap, vGap, padX, padY = 180, 36, 24, 60, 20, 20
	hasShared := len(b.SharedDeps) > 0
	hasExt := len(b.ExternalDeps) > 0
	legendLines := 0
	if hasShared {
		legendLines++
	}
	if hasExt {
		legendLines++
	}
	legendH := 0
	if legendLines > 0 {
		legendH = legendLines*20 + 8
	}

	nLBs, nT1, nT2 := len(b.LBNames), len(tier1), len(tier2)
	rowCounts := []int{nLBs}
	if nT1 > 0 {
		rowCounts = append(rowCounts, nT1)
	}
	if nT2 > 0 {
		rowCounts = append(rowCounts, nT2)
	}
	nRows := len(rowCounts)

	maxItems := 1
	for _, c := range rowCounts {
		if c > maxItems {
			maxItems = c
		}
	}
	svgW := maxItems*(boxW+hGap) - hGap + 2*padX
	if svgW < 300 {
		svgW = 300
	}
	contentH := nRows*(boxH+vGap) - vGap + 2*padY
	svgH := contentH + legendH

	rowXStart := func(nItems int) float64 {
		rowWidth := nItems*(boxW+hGap) - hGap
		return float64(svgW-rowWidth) / 2
	}

	type pos struct{ cx, cy float64 }
	positions := map[string]pos{}
	nodeID := func(dk DepKey) string { return "dep:" + dk.Kind + ":" + dk.Name }

	x0 := rowXStart(nLBs)
	for i, lb := range b.LBNames {
		cx := x0 + float64(i*(boxW+hGap)) + float64(boxW)/2
		cy := float64(padY) + float64(boxH)/2
		positions["lb:"+lb] = pos{cx, cy}
	}
	if nT1 > 0 {
		x1 := rowXStart(nT1)
		for i, dk := range tier1 {
			cx := x1 + float64(i*(boxW+hGap)) + float64(boxW)/2
			cy := float64(padY) + float64(boxH+vGap) + float64(boxH)/2
			positions[nodeID(dk)] = pos{cx, cy}
		}
	}
	if nT2 > 0 {
		rowIdx := 1
		if nT1 > 0 {
			rowIdx = 2
		}
		x2 := rowXStart(nT2)
		for i, dk := range tier2 {
			cx := x2 + float64(i*(boxW+hGap)) + float64(boxW)/2
			cy := float64(padY) + float64(rowIdx*(boxH+vGap)) + float64(boxH)/2
			positions[nodeID(dk)] = pos{cx, cy}
		}
	}

	const lineColor, sharedLineColor = "#90a4ae", "#e67e22"

	var parts []string
	parts = append(parts, fmt.Sprintf(
		`<defs><marker id="arr" markerWidth="8" markerHeight="6" refX="8" refY="3" orient="auto" `+
			`markerUnits="strokeWidth"><path d="M0,0 L8,3 L0,6" fill="%s" /></marker>`+
			`<marker id="arr-shared" markerWidth="8" markerHeight="6" refX="8" refY="3" orient="auto" `+
			`markerUnits="strokeWidth"><path d="M0,0 L8,3 L0,6" fill="%s" /></marker></defs>`,
		lineColor, sharedLineColor))

	drawLine := func(fromID, toID string, shared bool) {
		p1, ok1 := positions[fromID]
		p2, ok2 := positions[toID]
		if !ok1 || !ok2 {
			return
		}
		color, width, marker := lineColor, "1.5", "url(#arr)"
		if shared {
			color, width, marker = sharedLineColor, "2.5", "url(#arr-shared)"
		}
		parts = append(parts, fmt.Sprintf(
			`<line x1="%g" y1="%g" x2="%g" y2="%g" stroke="%s" stroke-width="%s" marker-end="%s" />`,
			p1.cx, p1.cy+float64(boxH)/2, p2.cx, p2.cy-float64(boxH)/2, color, width, marker))
	}
	for _, lb := range b.LBNames {
		for _, dk := range b.LBToDeps[lb] {
			drawLine("lb:"+lb, nodeID(dk), b.SharedDeps[dk])
		}
	}
	for _, parent := range tier1 {
		for _, child := range b.DepChildren[parent] {
			drawLine(nodeID(parent), nodeID(child), b.SharedDeps[child])
		}
	}

	for _, lb := range b.LBNames {
		p := positions["lb:"+lb]
		x, y := p.cx-float64(boxW)/2, p.cy-float64(boxH)/2
		display := truncate(lb, 22)
		parts = append(parts, fmt.Sprintf(
			`<rect x="%g" y="%g" width="%d" height="%d" rx="6" fill="#0d6efd" />`+
				`<text x="%g" y="%g" text-anchor="middle" fill="#ffffff" font-size="12" font-weight="600">%s</text>`,
			x, y, boxW, boxH, p.cx, p.cy+5, html.EscapeString(display)))
	}

	drawDep := func(dk DepKey, isLeaf bool) {
		p, ok := positions[nodeID(dk)]
		if !ok {
			return
		}
		x, y := p.cx-float64(boxW)/2, p.cy-float64(boxH)/2
		isExtD := b.ExternalDeps[dk]
		isSharedD := b.SharedDeps[dk]
		var fill, border string
		switch {
		case isExtD:
			fill, border = "#fdecea", "#dc3545"
		case isSharedD:
			fill, border = "#fef3e8", "#e67e22"
		case isLeaf:
			fill, border = "#f5f5f5", "#9e9e9e"
		default:
			fill, border = "#e0f2f1", "#26a69a"
		}
		strokeW := "1.5"
		if isExtD || isSharedD {
			strokeW = "2.5"
		}
		parts = append(parts, fmt.Sprintf(
			`<rect x="%g" y="%g" width="%d" height="%d" rx="6" fill="%s" stroke="%s" stroke-width="%s" />`+
				`<text x="%g" y="%g" text-anchor="middle" fill="#1a1a1a" font-size="11">%s</text>`,
			x, y, boxW, boxH, fill, border, strokeW, p.cx, p.cy+5, html.EscapeString(depLabel(dk))))
	}
	for _, dk := range tier1 {
		drawDep(dk, false)
	}
	for _, dk := range tier2 {
		drawDep(dk, true)
	}

	var legendParts []string
	legendY := float64(contentH) + 4
	if hasExt {
		legendParts = append(legendParts, fmt.Sprintf(
			`<g transform="translate(10, %g)"><rect x="0" y="0" width="14" height="14" rx="3" `+
				`fill="#fdecea" stroke="#dc3545" stroke-width="2.5" />`+
				`<text x="20" y="11" font-size="10" fill="#666">used by external object (not in move list)</text></g>`,
			legendY))
		legendY += 20
	}
	if hasShared {
		legendParts = append(legendParts, fmt.Sprintf(
			`<g transform="translate(10, %g)"><rect x="0" y="0" width="14" height="14" rx="3" `+
				`fill="#fef3e8" stroke="#e67e22" stroke-width="2" />`+
				`<text x="20" y="11" font-size="10" fill="#666">shared dependency (used by multiple LBs in this batch)</text></g>`,
			legendY))
	}

	return fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" `+
			`style="font-family: -apple-system, BlinkMacSystemFont, sans-serif; background: #fff; `+
			`border: 1px solid #dee2e6; border-radius: 6px; margin-bottom: 1rem;">%s%s</svg>`,
		svgW, svgH, strings.Join(parts, "\n"), strings.Join(legendParts, "\n"))
}

// sortedDepKeys returns dk sorted for deterministic test/diff output.
func sortedDepKeys(keys map[DepKey]bool) []DepKey {
	out := make([]DepKey, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}
