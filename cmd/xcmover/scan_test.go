package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f5devops/xc-ns-mover/internal/mover/report"
)

func TestWriteScanCSV_WritesHeaderAndSortedRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.csv")

	rows := []report.NamespaceScanRow{
		{Namespace: "ns2", LBName: "lb-b", LBKind: "http_loadbalancer"},
		{Namespace: "ns1", LBName: "lb-a", LBKind: "https_loadbalancer"},
	}
	scanTime := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	require.NoError(t, writeScanCSV(path, "acme", scanTime, []string{"ns1", "ns2"}, rows))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(contents)

	assert.Contains(t, text, "# Scanner report -- tenant: acme")
	assert.Contains(t, text, "# namespaces scanned: 2")
	assert.Contains(t, text, "# load balancers found: 2")
	assert.Contains(t, text, "# --- DATA STARTS BELOW THIS LINE ---")
	assert.Contains(t, text, "namespace,lb_name")

	nsOneIdx := indexOf(text, "ns1,lb-a")
	nsTwoIdx := indexOf(text, "ns2,lb-b")
	require.GreaterOrEqual(t, nsOneIdx, 0)
	require.GreaterOrEqual(t, nsTwoIdx, 0)
	assert.Less(t, nsOneIdx, nsTwoIdx, "rows should be sorted by namespace then lb name")
}

func TestWriteScanCSV_EmptyRowsStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scanner.csv")

	require.NoError(t, writeScanCSV(path, "acme", time.Now(), nil, nil))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "# load balancers found: 0")
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
