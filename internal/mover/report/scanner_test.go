package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanReporter_WritesReport(t *testing.T) {
	dir := t.TempDir()
	r := NewScanReporter(dir)

	rows := []NamespaceScanRow{
		{Namespace: "ns1", LBName: "lb1", LBKind: "http_loadbalancer"},
		{Namespace: "ns1", LBName: "lb2", LBKind: "https_loadbalancer"},
		{Namespace: "ns2", LBName: "lb3", LBKind: "http_loadbalancer"},
	}

	path, err := r.Generate("acme", []string{"ns1", "ns2", "ns3"}, 5, rows, nil, nil)
	require.NoError(t, err)
	require.FileExists(t, path)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "scanner-report-"))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(contents)
	assert.Contains(t, page, "Scanner Report")
	assert.Contains(t, page, "lb1")
	assert.Contains(t, page, "ns1,lb1")
	assert.Contains(t, page, "No filter")
	assert.Contains(t, page, "Https Loadbalancer")
}

func TestScanReporter_IncludeExcludeFilterDescription(t *testing.T) {
	dir := t.TempDir()
	r := NewScanReporter(dir)

	path, err := r.Generate("acme", []string{"ns1"}, 3, nil, []string{"ns1", "ns2"}, []string{"ns2"})
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	page := string(contents)
	assert.Contains(t, page, "Include + Exclude")
	assert.Contains(t, page, "cfg-tag-include")
	assert.Contains(t, page, "cfg-tag-exclude")
}

func TestBuildScanSummaryCards_CountsEmptyNamespaces(t *testing.T) {
	rows := []NamespaceScanRow{{Namespace: "ns1", LBName: "lb1", LBKind: "http_loadbalancer"}}
	cards := buildScanSummaryCards(len(rows), 3, 1, 2, map[string]int{"http_loadbalancer": 1})
	assert.Contains(t, cards, `<div class="num">2</div><div class="label">Empty</div>`)
}

func TestLBKindTitle(t *testing.T) {
	assert.Equal(t, "Http Loadbalancer", lbKindTitle("http_loadbalancer"))
	assert.Equal(t, "Https Loadbalancer", lbKindTitle("https_loadbalancer"))
}
