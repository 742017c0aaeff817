package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute_IgnoresCommentsBlanksAndOrder(t *testing.T) {
	a := Compute("acme", "dst-ns", "lb1,src1,dst1\n# a comment\n\nlb2,src2,dst2\n")
	b := Compute("acme", "dst-ns", "lb2,src2,dst2\n\nlb1,src1,dst1\n# different comment\n")

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestCompute_DifferentInputsDiffer(t *testing.T) {
	a := Compute("acme", "dst-ns", "lb1,src1,dst1")
	b := Compute("acme", "other-ns", "lb1,src1,dst1")

	assert.NotEqual(t, a, b)
}

func TestGate_WriteReadDelete(t *testing.T) {
	dir := t.TempDir()
	gate := New(filepath.Join(dir, ".mover_dryrun_fingerprint"))

	digest := Compute("acme", "dst-ns", "lb1,src1,dst1")
	require.NoError(t, gate.Write(digest))

	gotDigest, gotTimestamp := gate.Read()
	assert.Equal(t, digest, gotDigest)
	assert.NotEmpty(t, gotTimestamp)

	require.NoError(t, gate.Delete())
	gotDigest, gotTimestamp = gate.Read()
	assert.Empty(t, gotDigest)
	assert.Empty(t, gotTimestamp)
}

func TestGate_ReadMissingFileReturnsEmpty(t *testing.T) {
	gate := New(filepath.Join(t.TempDir(), "absent"))

	digest, timestamp := gate.Read()
	assert.Empty(t, digest)
	assert.Empty(t, timestamp)
}

func TestGate_DeleteMissingFileIsNotAnError(t *testing.T) {
	gate := New(filepath.Join(t.TempDir(), "absent"))
	assert.NoError(t, gate.Delete())
}

func TestGate_Verify(t *testing.T) {
	dir := t.TempDir()
	gate := New(filepath.Join(dir, ".mover_dryrun_fingerprint"))

	csv := "lb1,src1,dst1"
	require.NoError(t, gate.Write(Compute("acme", "dst-ns", csv)))

	assert.True(t, gate.Verify("acme", "dst-ns", csv))
	assert.False(t, gate.Verify("acme", "dst-ns", "lb2,src2,dst2"))
	assert.False(t, gate.Verify("acme", "other-ns", csv))
}

func TestGate_ReadSingleLineFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".mover_dryrun_fingerprint")
	require.NoError(t, os.WriteFile(path, []byte("abc123\n"), 0o644))

	gate := New(path)
	digest, timestamp := gate.Read()
	assert.Equal(t, "abc123", digest)
	assert.Empty(t, timestamp)
}
