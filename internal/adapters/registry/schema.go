package registry

// Wire schema of the package index API.
//
// GET {base}/{name}/json           -> projectDocument
// GET {base}/{name}/{version}/json -> versionDocument
//
// Version documents are immutable once published; project documents
// change whenever a version is added or yanked and are always fetched
// live.

type projectDocument struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

type versionDocument struct {
	Name      string              `json:"name"`
	Version   string              `json:"version"`
	Requires  []string            `json:"requires"`
	Extras    map[string][]string `json:"extras"`
	Artifacts []artifactDocument  `json:"artifacts"`
}

type artifactDocument struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Sha256   string `json:"sha256"`
	Tag      string `json:"tag"`
}
