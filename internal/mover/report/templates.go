package report

import "html/template"

// baseCSS is the shared stylesheet for every report page: body, headings,
// summary cards, tables, the copy-button, and the JSON code block.
const baseCSS = `
  *, *::before, *::after { box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
         margin: 2rem; color: #1a1a1a; background: #f8f9fa; }
  h1 { color: #0d6efd; margin-bottom: 0.25rem; }
  h2 { color: #333; margin-top: 2rem; margin-bottom: 1rem; }
  .meta { color: #555; font-size: 0.9rem; margin-bottom: 1.5rem; }

  .summary { display: flex; flex-wrap: wrap; gap: 1rem; margin-bottom: 1.5rem; }
  .summary .card { background: #fff; border: 1px solid #dee2e6; border-radius: 8px;
                    padding: 0.75rem 1.25rem; min-width: 110px; text-align: center;
                    box-shadow: 0 1px 3px rgba(0,0,0,0.04); }
  .summary .card .num { font-size: 1.6rem; font-weight: 700; }
  .summary .card .label { font-size: 0.75rem; color: #666; text-transform: uppercase;
                           letter-spacing: 0.03em; margin-top: 0.15rem; }
  .card-moved .num { color: #198754; } .card-failed .num { color: #dc3545; }
  .card-blocked .num { color: #dc3545; } .card-reverted .num { color: #fd7e14; }
  .card-skipped .num { color: #6c757d; } .card-dryrun .num { color: #0d6efd; }
  .card-rework .num { color: #e67e22; }

  table { border-collapse: collapse; width: 100%; background: #fff;
           border: 1px solid #dee2e6; border-radius: 8px; overflow: hidden;
           margin-bottom: 2rem; box-shadow: 0 1px 3px rgba(0,0,0,0.04); }
  th { background: #0d6efd; color: #fff; padding: 0.6rem 0.75rem;
       text-align: left; font-size: 0.8rem; text-transform: uppercase;
       letter-spacing: 0.03em; }
  td { padding: 0.45rem 0.75rem; border-top: 1px solid #e9ecef; font-size: 0.85rem; }
  tr:hover td { background: #f0f4ff; }

  .copy-btn { background: #495057; color: #fff; border: 1px solid #6c757d;
              border-radius: 4px; padding: 0.25rem 0.6rem; font-size: 0.75rem;
              cursor: pointer; font-family: inherit; }
  .copy-btn:hover { background: #6c757d; border-color: #adb5bd; }
  .copy-btn.copied { background: #198754; border-color: #198754; }

  .json-block { background: #1e1e1e; color: #d4d4d4; padding: 1rem;
                border-radius: 0 0 6px 6px; overflow-x: auto; font-size: 0.8rem;
                line-height: 1.4; margin-top: 0; border: 1px solid #dee2e6;
                border-top: none; white-space: pre; }
  .json-block-wrapper { position: relative; }
  .json-block-wrapper .copy-btn { position: absolute; top: 0.5rem; right: 0.5rem; z-index: 10; }

  .warning-banner { background: #fff3cd; border: 1px solid #ffda6a; border-radius: 8px;
                     padding: 1rem 1.25rem; margin-bottom: 1.5rem; }
  .rework-banner { background: #fdecea; border: 1px solid #f1948a; border-radius: 8px;
                    padding: 1rem 1.25rem; margin-bottom: 1.5rem; }
  .lb-chip { display: inline-block; }
  .lb-chip-blocked, .status-blocked, .status-failed { color: #dc3545; font-weight: 600; }
  .status-moved { color: #198754; font-weight: 600; }
  .status-reverted { color: #fd7e14; font-weight: 600; }
  .status-skipped { color: #6c757d; }
  .status-manual-rework { color: #e67e22; font-weight: 600; }
  .status-dry-run { color: #0d6efd; }

  footer { margin-top: 2rem; font-size: 0.8rem; color: #888; }
`

// copyJS provides clipboard-copy helpers shared by every JSON/CSV block.
const copyJS = `
<script>
function _doCopy(btn, text, labelOk) {
  navigator.clipboard.writeText(text).then(function() {
    btn.textContent = 'Copied!';
    btn.classList.add('copied');
    setTimeout(function() { btn.textContent = labelOk; btn.classList.remove('copied'); }, 2000);
  });
}
function copyJson(btn) {
  var pre = btn.parentElement.querySelector('pre.json-block');
  if (!pre) return;
  _doCopy(btn, pre.textContent || pre.innerText, 'Copy JSON');
}
</script>`

// pageTemplate is the top-level HTML scaffold shared by dry-run and live
// move reports.
var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"safe": func(s string) template.HTML { return template.HTML(s) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
{{.CSS | safe}}
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{.MetaLine | safe}}</div>

{{.Body | safe}}

<footer>Generated by xc-ns-mover</footer>
` + copyJS + `
</body>
</html>
`))

type pageData struct {
	Title    string
	MetaLine string
	CSS      string
	Body     string
}
