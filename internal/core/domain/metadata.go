package domain

// Artifact is a single downloadable distribution of a package version.
type Artifact struct {
	// Filename is the artifact's file name as published by the index.
	Filename string

	// URL is the source location the artifact is fetched from.
	URL string

	// Hash is the hex sha256 of the artifact's bytes. It keys the
	// content-addressed store and is verified on every fetch.
	Hash string

	// CompatTag is the platform/ABI compatibility tag, e.g. "py3-none-any".
	CompatTag string
}

// PackageMetadata is the declared metadata of one package version: its
// own requirements and the artifacts available for it. Metadata for a
// given name+version is immutable once fetched and cached indefinitely.
type PackageMetadata struct {
	Name    InternedString
	Version Version

	// Requires are the requirements the version declares, including
	// extra-gated ones.
	Requires []Requirement

	// ExtraRequires maps an extra name to the additional requirements
	// activating that extra introduces.
	ExtraRequires map[string][]Requirement

	// Artifacts are the distributions published for this version.
	Artifacts []Artifact
}

// RequirementsFor returns the requirements applicable to the environment
// with the given extras activated. Extras activation is monotonic: it
// only ever adds requirements.
func (m *PackageMetadata) RequirementsFor(env TargetEnvironment, extras []string) []Requirement {
	var out []Requirement
	for _, req := range m.Requires {
		if req.ApplicableTo(env) {
			out = append(out, req)
		}
	}
	for _, extra := range extras {
		for _, req := range m.ExtraRequires[extra] {
			if req.ApplicableTo(env) {
				out = append(out, req)
			}
		}
	}
	return out
}

// ArtifactFor picks the most preferred artifact compatible with the
// environment. The order is the environment's tag preference order, then
// lexicographic URL as the final tie-break.
func (m *PackageMetadata) ArtifactFor(env TargetEnvironment) (Artifact, bool) {
	best := -1
	var chosen Artifact
	for _, a := range m.Artifacts {
		rank, ok := env.AcceptsTag(a.CompatTag)
		if !ok {
			continue
		}
		if best < 0 || rank < best || (rank == best && a.URL < chosen.URL) {
			best = rank
			chosen = a
		}
	}
	return chosen, best >= 0
}
