// Package config provides the manifest loader for pakt.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileManifestLoader implements ports.ManifestLoader on a YAML file.
type FileManifestLoader struct {
	Filename string
	logger   ports.Logger
}

// NewLoader creates a loader for the default manifest file name.
func NewLoader(logger ports.Logger) *FileManifestLoader {
	return &FileManifestLoader{
		Filename: domain.ManifestFileName,
		logger:   logger,
	}
}

// Load reads the manifest from the given working directory.
func (l *FileManifestLoader) Load(cwd string) (*domain.Manifest, error) {
	path := filepath.Join(cwd, l.Filename)
	manifest, err := Load(path)
	if err != nil {
		return nil, err
	}
	if l.logger != nil {
		l.logger.Info("loaded manifest from " + path)
	}
	return manifest, nil
}

// Load reads a manifest file from the given path.
func Load(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrManifestReadFailed.Error())
	}
	return Parse(data)
}

// Parse decodes manifest bytes into domain form, validating every
// requirement and the runtime constraint.
func Parse(data []byte) (*domain.Manifest, error) {
	var file paktfile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(err, domain.ErrManifestParseFailed.Error())
	}

	manifest := &domain.Manifest{
		Environment: domain.TargetEnvironment{
			PythonVersion:     file.Environment.PythonVersion,
			PythonFullVersion: file.Environment.PythonFullVersion,
			SysPlatform:       file.Environment.SysPlatform,
			OSName:            file.Environment.OSName,
			PlatformMachine:   file.Environment.PlatformMachine,
			CompatTags:        file.Environment.CompatTags,
		},
		Sources: file.Sources,
	}

	if file.RequiresPython != "" {
		spec, err := domain.ParseSpecifier(file.RequiresPython)
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrManifestParseFailed.Error())
		}
		manifest.RuntimeConstraint = spec
	}

	seen := make(map[string]bool)
	for _, raw := range file.Dependencies {
		req, err := parseEntry(raw, seen)
		if err != nil {
			return nil, err
		}
		manifest.Requirements = append(manifest.Requirements, req)
	}
	devSeen := make(map[string]bool)
	for _, raw := range file.DevDependencies {
		req, err := parseEntry(raw, devSeen)
		if err != nil {
			return nil, err
		}
		manifest.DevRequirements = append(manifest.DevRequirements, req)
	}
	return manifest, nil
}

func parseEntry(raw string, seen map[string]bool) (domain.Requirement, error) {
	req, err := domain.ParseRequirement(strings.TrimSpace(raw))
	if err != nil {
		wrapped := zerr.Wrap(err, domain.ErrManifestParseFailed.Error())
		return domain.Requirement{}, zerr.With(wrapped, "requirement", raw)
	}
	name := req.Name.String()
	if seen[name] {
		return domain.Requirement{}, zerr.With(domain.ErrManifestParseFailed, "duplicate", name)
	}
	seen[name] = true
	return req, nil
}
