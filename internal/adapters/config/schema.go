package config

// paktfile represents the structure of the pakt.yaml manifest file.
type paktfile struct {
	RequiresPython  string         `yaml:"requires-python"`
	Dependencies    []string       `yaml:"dependencies"`
	DevDependencies []string       `yaml:"dev-dependencies"`
	Environment     environmentDTO `yaml:"environment"`
	Sources         []string       `yaml:"sources"`
}

// environmentDTO describes the target environment resolution runs for.
type environmentDTO struct {
	PythonVersion     string   `yaml:"python-version"`
	PythonFullVersion string   `yaml:"python-full-version"`
	SysPlatform       string   `yaml:"sys-platform"`
	OSName            string   `yaml:"os-name"`
	PlatformMachine   string   `yaml:"platform-machine"`
	CompatTags        []string `yaml:"compat-tags"`
}
