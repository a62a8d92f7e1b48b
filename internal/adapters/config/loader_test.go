package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/pakt/internal/core/domain"
)

const sampleManifest = `requires-python: ">=3.9"
dependencies:
  - "requests>=2.0"
  - "flask[async]>=3.0; sys_platform == \"linux\""
dev-dependencies:
  - "pytest>=8.0"
environment:
  python-version: "3.12"
  python-full-version: "3.12.4"
  sys-platform: linux
  os-name: posix
  platform-machine: x86_64
  compat-tags:
    - cp312-cp312-linux_x86_64
    - py3-none-any
sources:
  - https://index.pakt.dev/simple
`

func TestParseFullManifest(t *testing.T) {
	manifest, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	require.Len(t, manifest.Requirements, 2)
	assert.Equal(t, "requests", manifest.Requirements[0].Name.String())
	assert.Equal(t, "flask", manifest.Requirements[1].Name.String())
	assert.Equal(t, []string{"async"}, manifest.Requirements[1].Extras)

	require.Len(t, manifest.DevRequirements, 1)
	assert.Equal(t, "pytest", manifest.DevRequirements[0].Name.String())

	assert.True(t, manifest.RuntimeConstraint.Match(domain.MustParseVersion("3.12")))
	assert.False(t, manifest.RuntimeConstraint.Match(domain.MustParseVersion("3.8")))

	assert.Equal(t, "3.12", manifest.Environment.PythonVersion)
	assert.Equal(t, "linux", manifest.Environment.SysPlatform)
	assert.Len(t, manifest.Environment.CompatTags, 2)
	assert.Equal(t, []string{"https://index.pakt.dev/simple"}, manifest.Sources)
}

func TestParseMinimalManifest(t *testing.T) {
	manifest, err := Parse([]byte("dependencies:\n  - \"a>=1.0\"\n"))
	require.NoError(t, err)
	require.Len(t, manifest.Requirements, 1)
	assert.Empty(t, manifest.DevRequirements)
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("dependencies: [unclosed"))
	require.ErrorIs(t, err, domain.ErrManifestParseFailed)
}

func TestParseRejectsInvalidRequirement(t *testing.T) {
	_, err := Parse([]byte("dependencies:\n  - \">>>nonsense\"\n"))
	require.ErrorIs(t, err, domain.ErrManifestParseFailed)
}

func TestParseRejectsDuplicateRequirement(t *testing.T) {
	_, err := Parse([]byte("dependencies:\n  - \"a>=1.0\"\n  - \"A>=2.0\"\n"))
	require.ErrorIs(t, err, domain.ErrManifestParseFailed)
}

func TestParseAllowsSameNameAcrossGroups(t *testing.T) {
	data := []byte("dependencies:\n  - \"a>=1.0\"\ndev-dependencies:\n  - \"a>=1.0\"\n")
	manifest, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, manifest.Requirements, 1)
	assert.Len(t, manifest.DevRequirements, 1)
}

func TestParseRejectsInvalidRuntimeConstraint(t *testing.T) {
	_, err := Parse([]byte("requires-python: \"not a constraint\"\n"))
	require.ErrorIs(t, err, domain.ErrManifestParseFailed)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), domain.ManifestFileName))
	require.ErrorIs(t, err, domain.ErrManifestReadFailed)
}

func TestLoaderReadsFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, domain.ManifestFileName)
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), domain.FilePerm))

	loader := NewLoader(nil)
	manifest, err := loader.Load(dir)
	require.NoError(t, err)
	assert.Len(t, manifest.Requirements, 2)
}

func TestFingerprintChangesWithManifest(t *testing.T) {
	first, err := Parse([]byte("dependencies:\n  - \"a>=1.0\"\n"))
	require.NoError(t, err)
	second, err := Parse([]byte("dependencies:\n  - \"a>=2.0\"\n"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Fingerprint(), second.Fingerprint())
	third, err := Parse([]byte("dependencies:\n  - \"a>=1.0\"\n"))
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint(), third.Fingerprint())
}
