// Package fingerprint enforces the dry-run-before-real-run gate: a real
// move requires a stored digest matching the current (tenant, target
// namespace, CSV) triple, proving a dry-run already previewed exactly
// this run.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// DefaultFile is the on-disk location of the fingerprint file, relative
// to the project root, matching the original layout
// (config/.mover_dryrun_fingerprint).
const DefaultFile = "config/.mover_dryrun_fingerprint"

// Gate manages the dry-run fingerprint file at Path.
type Gate struct {
	Path string
}

// New builds a Gate rooted at path. If path is "", DefaultFile is used.
func New(path string) *Gate {
	if path == "" {
		path = DefaultFile
	}
	return &Gate{Path: path}
}

// Compute returns the first 16 hex characters of the SHA-256 digest over
// tenant, targetNamespace, and the canonicalised CSV content: comment
// lines (starting with '#') and blank lines dropped, remaining lines
// trimmed and sorted lexicographically, then joined with '|'. Sorting
// makes the digest invariant to row order; dropping comments/blanks
// makes it invariant to annotation-only edits.
func Compute(tenant, targetNamespace, csvContent string) string {
	var lines []string
	for _, line := range strings.Split(csvContent, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, trimmed)
	}
	sort.Strings(lines)

	input := fmt.Sprintf("%s|%s|%s", tenant, targetNamespace, strings.Join(lines, "|"))
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}

// Write stores digest to disk alongside a human-readable local timestamp.
func (g *Gate) Write(digest string) error {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	content := fmt.Sprintf("%s\n%s\n", digest, timestamp)
	return os.WriteFile(g.Path, []byte(content), 0o644)
}

// Read returns the stored (digest, timestamp), or ("", "") if no
// fingerprint file exists.
func (g *Gate) Read() (string, string) {
	data, err := os.ReadFile(g.Path)
	if err != nil {
		return "", ""
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	switch len(lines) {
	case 0:
		return "", ""
	case 1:
		return strings.TrimSpace(lines[0]), ""
	default:
		return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1])
	}
}

// Delete removes the fingerprint file after a successful real run,
// enforcing one-shot use. Absence of the file is not an error.
func (g *Gate) Delete() error {
	err := os.Remove(g.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Verify reports whether a real run with the given inputs is allowed: the
// stored digest must equal the freshly computed one.
func (g *Gate) Verify(tenant, targetNamespace, csvContent string) bool {
	stored, _ := g.Read()
	if stored == "" {
		return false
	}
	return stored == Compute(tenant, targetNamespace, csvContent)
}
