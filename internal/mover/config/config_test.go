package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: acme
auth:
  api_token: abc123
mover:
  target_namespace: ns2
  conflict_prefix: mv
report:
  output_dir: reports
namespaces:
  include: []
  exclude: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Tenant.Name)
	assert.Equal(t, "abc123", cfg.Auth.APIToken)
	assert.Equal(t, "ns2", cfg.Mover.TargetNamespace)
	assert.Equal(t, "mv", cfg.Mover.ConflictPrefix)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
}

func TestLoad_DefaultsApplyWhenOmitted(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: acme
auth:
  api_token: abc123
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mv", cfg.Mover.ConflictPrefix)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "stdout", cfg.Log.Output)
}

func TestLoad_RejectsPlaceholderTenantName(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: your-tenant-name
auth:
  api_token: abc123
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant.name")
}

func TestLoad_RejectsPlaceholderAPIToken(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: acme
auth:
  api_token: REPLACE_WITH_YOUR_API_TOKEN
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.api_token")
}

func TestLoad_RejectsInvalidXCName(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: "Not Valid!"
auth:
  api_token: abc123
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant.name")
}

func TestLoad_RejectsOverlappingIncludeExclude(t *testing.T) {
	path := writeConfig(t, `
tenant:
  name: acme
auth:
  api_token: abc123
namespaces:
  include: ["ns1", "ns2"]
  exclude: ["ns2"]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ns2")
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestValidateXCName(t *testing.T) {
	assert.NoError(t, ValidateXCName("my-namespace.1", "name"))
	assert.Error(t, ValidateXCName("", "name"))
	assert.Error(t, ValidateXCName("Has-Upper", "name"))
	assert.Error(t, ValidateXCName("_leading-underscore", "name"))
}

func TestResolveNamespaces_IncludeOnly(t *testing.T) {
	all := []string{"ns1", "ns2", "ns3"}
	got := ResolveNamespaces(all, []string{"ns1", "ns3"}, nil)
	assert.ElementsMatch(t, []string{"ns1", "ns3"}, got)
}

func TestResolveNamespaces_ExcludeOnly(t *testing.T) {
	all := []string{"ns1", "ns2", "ns3"}
	got := ResolveNamespaces(all, nil, []string{"ns2"})
	assert.ElementsMatch(t, []string{"ns1", "ns3"}, got)
}

func TestResolveNamespaces_IncludeAndExclude(t *testing.T) {
	all := []string{"ns1", "ns2", "ns3"}
	got := ResolveNamespaces(all, []string{"ns1", "ns2"}, []string{"ns2"})
	assert.ElementsMatch(t, []string{"ns1"}, got)
}

func TestResolveNamespaces_Neither(t *testing.T) {
	all := []string{"ns1", "ns2", "ns3"}
	got := ResolveNamespaces(all, nil, nil)
	assert.ElementsMatch(t, all, got)
}

func TestResolveNamespaces_IncludeUnknownNamespaceIgnored(t *testing.T) {
	all := []string{"ns1", "ns2"}
	got := ResolveNamespaces(all, []string{"ns1", "ns-does-not-exist"}, nil)
	assert.ElementsMatch(t, []string{"ns1"}, got)
}
