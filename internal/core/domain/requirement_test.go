package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"requests", "requests"},
		{"Django", "django"},
		{"Foo_Bar", "foo-bar"},
		{"foo.bar", "foo-bar"},
		{"foo--bar", "foo-bar"},
		{"foo_._bar", "foo-bar"},
		{"  zope.interface  ", "zope-interface"},
		{"_leading", "leading"},
	}
	for _, tc := range cases {
		if got := domain.CanonicalName(tc.input); got != tc.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseRequirement(t *testing.T) {
	req, err := domain.ParseRequirement(`Foo_Bar[extra2,Extra1]>=1.0,<2.0; python_version >= "3.9"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := req.Name.String(); got != "foo-bar" {
		t.Errorf("Name = %q, want %q", got, "foo-bar")
	}
	if len(req.Extras) != 2 || req.Extras[0] != "extra1" || req.Extras[1] != "extra2" {
		t.Errorf("Extras = %v, want sorted canonical [extra1 extra2]", req.Extras)
	}
	if !req.Specifier.Match(domain.MustParseVersion("1.5")) {
		t.Error("specifier must admit 1.5")
	}
	if req.Specifier.Match(domain.MustParseVersion("2.0")) {
		t.Error("specifier must reject 2.0")
	}
	if req.Marker.IsZero() {
		t.Error("expected a parsed marker")
	}
}

func TestParseRequirement_NameOnly(t *testing.T) {
	req, err := domain.ParseRequirement("requests")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Specifier.IsConstrained() {
		t.Error("bare name must be unconstrained")
	}
	if !req.Specifier.Match(domain.MustParseVersion("0.1")) {
		t.Error("bare name must admit every version")
	}
}

func TestParseRequirement_Invalid(t *testing.T) {
	for _, input := range []string{"", ">=1.0", "foo[bar", "foo>=abc", `foo; python_version >`} {
		if _, err := domain.ParseRequirement(input); !errors.Is(err, domain.ErrInvalidRequirement) {
			t.Errorf("ParseRequirement(%q): expected ErrInvalidRequirement, got %v", input, err)
		}
	}
}

func TestRequirement_ApplicableTo(t *testing.T) {
	env := linuxEnv()
	win := domain.MustParseRequirement(`colorama; sys_platform == "win32"`)
	if win.ApplicableTo(env) {
		t.Error("win32-only requirement must not apply on linux")
	}
	plain := domain.MustParseRequirement("requests>=2.0")
	if !plain.ApplicableTo(env) {
		t.Error("unmarked requirement must always apply")
	}
}

func TestRequirement_String(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"requests", "requests"},
		{"Foo_Bar >=1.0", "foo-bar>=1.0"},
		{"pkg[B,a]==2.0", "pkg[a,b]==2.0"},
		{`dep>=1.0; sys_platform == "linux"`, `dep>=1.0; sys_platform == "linux"`},
	}
	for _, tc := range cases {
		req, err := domain.ParseRequirement(tc.input)
		if err != nil {
			t.Fatalf("ParseRequirement(%q): unexpected error: %v", tc.input, err)
		}
		if got := req.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
