package domain_test

import (
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func sampleManifest() *domain.Manifest {
	return &domain.Manifest{
		Requirements: []domain.Requirement{
			domain.MustParseRequirement("requests>=2.0"),
			domain.MustParseRequirement("attrs"),
		},
		DevRequirements: []domain.Requirement{
			domain.MustParseRequirement("pytest>=8.0"),
		},
		RuntimeConstraint: domain.MustParseSpecifier(">=3.9"),
		Environment: domain.TargetEnvironment{
			PythonFullVersion: "3.12.4",
			SysPlatform:       "linux",
			PlatformMachine:   "x86_64",
			CompatTags:        []string{"py3-none-any"},
		},
		Sources: []string{"https://index.pakt.dev/simple"},
	}
}

func TestManifestFingerprint_Stable(t *testing.T) {
	a, b := sampleManifest(), sampleManifest()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("identical manifests must fingerprint identically")
	}
}

func TestManifestFingerprint_SensitiveToInputs(t *testing.T) {
	base := sampleManifest().Fingerprint()

	mutations := map[string]func(*domain.Manifest){
		"requirement added": func(m *domain.Manifest) {
			m.Requirements = append(m.Requirements, domain.MustParseRequirement("flask"))
		},
		"dev requirement changed": func(m *domain.Manifest) {
			m.DevRequirements[0] = domain.MustParseRequirement("pytest>=7.0")
		},
		"runtime constraint changed": func(m *domain.Manifest) {
			m.RuntimeConstraint = domain.MustParseSpecifier(">=3.11")
		},
		"platform changed": func(m *domain.Manifest) {
			m.Environment.SysPlatform = "darwin"
		},
		"compat tags changed": func(m *domain.Manifest) {
			m.Environment.CompatTags = []string{"cp312-cp312-linux_x86_64", "py3-none-any"}
		},
		"source changed": func(m *domain.Manifest) {
			m.Sources = []string{"https://mirror.test/simple"}
		},
	}
	for name, mutate := range mutations {
		m := sampleManifest()
		mutate(m)
		if m.Fingerprint() == base {
			t.Errorf("%s: fingerprint did not change", name)
		}
	}
}

func TestManifestFingerprint_GroupBoundaries(t *testing.T) {
	// Moving a requirement between the regular and dev groups must change
	// the fingerprint even though the flat list of strings is identical.
	a := &domain.Manifest{
		Requirements: []domain.Requirement{domain.MustParseRequirement("pytest>=8.0")},
	}
	b := &domain.Manifest{
		DevRequirements: []domain.Requirement{domain.MustParseRequirement("pytest>=8.0")},
	}
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("group membership must affect the fingerprint")
	}
}
