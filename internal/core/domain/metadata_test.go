package domain_test

import (
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func TestRequirementsFor_FiltersByMarker(t *testing.T) {
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString("pkg"),
		Version: domain.MustParseVersion("1.0"),
		Requires: []domain.Requirement{
			domain.MustParseRequirement("base>=1.0"),
			domain.MustParseRequirement(`winonly; sys_platform == "win32"`),
		},
	}

	got := meta.RequirementsFor(linuxEnv(), nil)
	if len(got) != 1 || got[0].Name.String() != "base" {
		t.Errorf("RequirementsFor = %v, want only base", got)
	}
}

func TestRequirementsFor_ExtrasAddRequirements(t *testing.T) {
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString("pkg"),
		Version: domain.MustParseVersion("1.0"),
		Requires: []domain.Requirement{
			domain.MustParseRequirement("base>=1.0"),
		},
		ExtraRequires: map[string][]domain.Requirement{
			"security": {domain.MustParseRequirement("cryptography>=40")},
			"socks":    {domain.MustParseRequirement("pysocks")},
		},
	}
	env := linuxEnv()

	if got := meta.RequirementsFor(env, nil); len(got) != 1 {
		t.Errorf("without extras: got %v, want only base", got)
	}
	got := meta.RequirementsFor(env, []string{"security"})
	if len(got) != 2 || got[1].Name.String() != "cryptography" {
		t.Errorf("with security extra: got %v, want base + cryptography", got)
	}
	if got := meta.RequirementsFor(env, []string{"security", "socks"}); len(got) != 3 {
		t.Errorf("with both extras: got %v, want three requirements", got)
	}
}

func TestArtifactFor_PrefersHigherRankedTag(t *testing.T) {
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString("pkg"),
		Version: domain.MustParseVersion("1.0"),
		Artifacts: []domain.Artifact{
			{Filename: "pkg-1.0-py3-none-any.whl", URL: "https://files.test/any", CompatTag: "py3-none-any"},
			{Filename: "pkg-1.0-cp312.whl", URL: "https://files.test/native", CompatTag: "cp312-cp312-linux_x86_64"},
			{Filename: "pkg-1.0-win.whl", URL: "https://files.test/win", CompatTag: "cp312-cp312-win_amd64"},
		},
	}
	env := domain.TargetEnvironment{
		CompatTags: []string{"cp312-cp312-linux_x86_64", "py3-none-any"},
	}

	artifact, ok := meta.ArtifactFor(env)
	if !ok {
		t.Fatal("expected a compatible artifact")
	}
	if artifact.CompatTag != "cp312-cp312-linux_x86_64" {
		t.Errorf("chose %q, want the native tag", artifact.CompatTag)
	}
}

func TestArtifactFor_NoCompatibleArtifact(t *testing.T) {
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString("pkg"),
		Version: domain.MustParseVersion("1.0"),
		Artifacts: []domain.Artifact{
			{Filename: "pkg-1.0-win.whl", URL: "https://files.test/win", CompatTag: "cp312-cp312-win_amd64"},
		},
	}
	env := domain.TargetEnvironment{CompatTags: []string{"py3-none-any"}}

	if _, ok := meta.ArtifactFor(env); ok {
		t.Error("expected no compatible artifact")
	}
}

func TestArtifactFor_URLTieBreak(t *testing.T) {
	meta := &domain.PackageMetadata{
		Name:    domain.NewInternedString("pkg"),
		Version: domain.MustParseVersion("1.0"),
		Artifacts: []domain.Artifact{
			{URL: "https://mirror-b.test/pkg", CompatTag: "py3-none-any"},
			{URL: "https://mirror-a.test/pkg", CompatTag: "py3-none-any"},
		},
	}
	env := domain.TargetEnvironment{CompatTags: []string{"py3-none-any"}}

	artifact, ok := meta.ArtifactFor(env)
	if !ok {
		t.Fatal("expected a compatible artifact")
	}
	if artifact.URL != "https://mirror-a.test/pkg" {
		t.Errorf("tie-break chose %q, want lexicographically smallest URL", artifact.URL)
	}
}

func TestAcceptsTag(t *testing.T) {
	env := domain.TargetEnvironment{CompatTags: []string{"native", "generic"}}

	if rank, ok := env.AcceptsTag("native"); !ok || rank != 0 {
		t.Errorf("AcceptsTag(native) = (%d, %v), want (0, true)", rank, ok)
	}
	if rank, ok := env.AcceptsTag("generic"); !ok || rank != 1 {
		t.Errorf("AcceptsTag(generic) = (%d, %v), want (1, true)", rank, ok)
	}
	if _, ok := env.AcceptsTag("other"); ok {
		t.Error("AcceptsTag(other) must be false")
	}
}
