package domain_test

import (
	"errors"
	"testing"

	"go.trai.ch/pakt/internal/core/domain"
)

func linuxEnv() domain.TargetEnvironment {
	return domain.TargetEnvironment{
		PythonVersion:     "3.12",
		PythonFullVersion: "3.12.4",
		SysPlatform:       "linux",
		OSName:            "posix",
		PlatformMachine:   "x86_64",
	}
}

func TestMarker_Evaluate(t *testing.T) {
	env := linuxEnv()
	cases := []struct {
		marker string
		want   bool
	}{
		{`python_version >= "3.9"`, true},
		{`python_version < "3.9"`, false},
		{`python_version >= "3.9.1"`, true}, // version compare, not string compare
		{`python_full_version == "3.12.4"`, true},
		{`sys_platform == "linux"`, true},
		{`sys_platform != "win32"`, true},
		{`os_name == "nt"`, false},
		{`python_version >= "3.9" and sys_platform == "linux"`, true},
		{`python_version >= "3.9" and sys_platform == "win32"`, false},
		{`sys_platform == "win32" or sys_platform == "linux"`, true},
		{`(sys_platform == "win32" or os_name == "posix") and python_version >= "3.0"`, true},
		{`unknown_variable == "anything"`, false},
	}
	for _, tc := range cases {
		m, err := domain.ParseMarker(tc.marker)
		if err != nil {
			t.Errorf("ParseMarker(%q): unexpected error: %v", tc.marker, err)
			continue
		}
		if got := m.Evaluate(env); got != tc.want {
			t.Errorf("%q evaluated to %v, want %v", tc.marker, got, tc.want)
		}
	}
}

func TestMarker_VersionComparison(t *testing.T) {
	// "3.10" must compare greater than "3.9" despite sorting lower as a string.
	env := domain.TargetEnvironment{PythonVersion: "3.10"}
	m, err := domain.ParseMarker(`python_version >= "3.9"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Evaluate(env) {
		t.Error("expected 3.10 >= 3.9 under version comparison")
	}
}

func TestParseMarker_Invalid(t *testing.T) {
	cases := []string{
		`python_version >=`,
		`python_version >= 3.9`, // unquoted value
		`>= "3.9"`,
		`(python_version >= "3.9"`,
		`python_version >= "3.9" and`,
		`python_version >= "3.9" garbage`,
	}
	for _, input := range cases {
		if _, err := domain.ParseMarker(input); !errors.Is(err, domain.ErrInvalidMarker) {
			t.Errorf("ParseMarker(%q): expected ErrInvalidMarker, got %v", input, err)
		}
	}
}

func TestMarker_ZeroAlwaysHolds(t *testing.T) {
	var m domain.Marker
	if !m.IsZero() {
		t.Error("zero marker must report IsZero")
	}
	if !m.Evaluate(domain.TargetEnvironment{}) {
		t.Error("zero marker must evaluate to true")
	}

	parsed, err := domain.ParseMarker("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.IsZero() {
		t.Error("blank marker source must parse to the zero marker")
	}
}
