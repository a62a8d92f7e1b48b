package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func TestParseSpecifier_Match(t *testing.T) {
	cases := []struct {
		spec    string
		version string
		want    bool
	}{
		{"", "1.0", true},
		{">=1.0", "1.0", true},
		{">=1.0", "0.9", false},
		{">1.0", "1.0", false},
		{"<2.0", "1.9", true},
		{"<=2.0", "2.0", true},
		{"==1.5", "1.5", true},
		{"==1.5", "1.5.1", false},
		{"!=1.3", "1.3", false},
		{"!=1.3", "1.4", true},
		{">=1.0,<2.0,!=1.3", "1.2", true},
		{">=1.0,<2.0,!=1.3", "1.3", false},
		{">=1.0,<2.0,!=1.3", "2.0", false},
		{"~=1.4.2", "1.4.9", true},
		{"~=1.4.2", "1.5.0", false},
		{"~=1.4.2", "1.4.1", false},
		{"~=2.2", "2.9", true},
		{"~=2.2", "3.0", false},
	}
	for _, tc := range cases {
		spec, err := domain.ParseSpecifier(tc.spec)
		if err != nil {
			t.Errorf("ParseSpecifier(%q): unexpected error: %v", tc.spec, err)
			continue
		}
		if got := spec.Match(domain.MustParseVersion(tc.version)); got != tc.want {
			t.Errorf("%q.Match(%s) = %v, want %v", tc.spec, tc.version, got, tc.want)
		}
	}
}

func TestParseSpecifier_Invalid(t *testing.T) {
	for _, input := range []string{"1.0", ">=", ">=1.0,", "foo>=1.0", ">=1.0,,<2.0"} {
		if _, err := domain.ParseSpecifier(input); !errors.Is(err, domain.ErrInvalidSpecifier) {
			t.Errorf("ParseSpecifier(%q): expected ErrInvalidSpecifier, got %v", input, err)
		}
	}
}

func TestSpecifier_ZeroValueUnconstrained(t *testing.T) {
	var spec domain.Specifier
	if !spec.Match(domain.MustParseVersion("3.7")) {
		t.Error("zero specifier must admit every version")
	}
	if spec.IsConstrained() {
		t.Error("zero specifier must not be constrained")
	}
}

func TestSpecifier_PinsPreRelease(t *testing.T) {
	if domain.MustParseSpecifier(">=1.0").PinsPreRelease() {
		t.Error(">=1.0 does not name a pre-release")
	}
	if !domain.MustParseSpecifier("==2.0rc1").PinsPreRelease() {
		t.Error("==2.0rc1 names a pre-release")
	}
	if !domain.MustParseSpecifier(">=1.0.dev3").PinsPreRelease() {
		t.Error(">=1.0.dev3 names a dev release")
	}
}

func TestSpecifier_String(t *testing.T) {
	spec := domain.MustParseSpecifier(" >=1.0 , <2.0 ")
	if got := spec.String(); got != ">=1.0,<2.0" {
		t.Errorf("String() = %q, want %q", got, ">=1.0,<2.0")
	}
}
