package domain

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Manifest is the project's declared dependency intent: direct
// requirements, development-only requirements, the runtime version
// constraint and the target environment. It is consumed read-only by the
// resolver.
type Manifest struct {
	Requirements    []Requirement
	DevRequirements []Requirement

	// RuntimeConstraint bounds the interpreter version the project
	// supports, e.g. ">=3.9".
	RuntimeConstraint Specifier

	// Environment is the target environment resolution is performed for.
	Environment TargetEnvironment

	// Sources lists index base URLs in priority order. The first source
	// carrying a package wins ties between equal versions.
	Sources []string
}

// Fingerprint returns a stable hash of the resolution inputs. The lock
// codec embeds it so the synchronizer can tell a stale lock (manifest
// changed) from an out-of-sync environment.
func (m *Manifest) Fingerprint() string {
	h := xxhash.New()
	for _, req := range m.Requirements {
		_, _ = h.WriteString(req.String())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0})
	for _, req := range m.DevRequirements {
		_, _ = h.WriteString(req.String())
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(m.RuntimeConstraint.String())
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(m.Environment.PythonFullVersion)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(m.Environment.SysPlatform)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(m.Environment.PlatformMachine)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(strings.Join(m.Environment.CompatTags, ","))
	_, _ = h.Write([]byte{0})
	for _, src := range m.Sources {
		_, _ = h.WriteString(src)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
