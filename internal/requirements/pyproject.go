package requirements

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// PyprojectFile is the conventional name of a pyproject manifest.
const PyprojectFile = "pyproject.toml"

type pyproject struct {
	Project struct {
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// ParsePyproject extracts dependencies from a pyproject.toml document.
//
// PEP 621 [project].dependencies come first in declaration order, followed
// by [tool.poetry.dependencies] sorted by name. Poetry's "python" entry is
// an interpreter constraint and is skipped.
func ParsePyproject(data []byte) ([]Requirement, error) {
	var doc pyproject
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", PyprojectFile, err)
	}

	var reqs []Requirement
	seen := make(map[string]struct{})
	for _, dep := range doc.Project.Dependencies {
		req, ok := ParseRequirement(dep)
		if !ok {
			continue
		}
		seen[req.NormalizedName()] = struct{}{}
		reqs = append(reqs, req)
	}

	names := make([]string, 0, len(doc.Tool.Poetry.Dependencies))
	for name := range doc.Tool.Poetry.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.EqualFold(name, "python") {
			continue
		}
		if _, dup := seen[NormalizeName(name)]; dup {
			continue
		}
		req := Requirement{Name: name, Raw: name}
		if v := poetryVersion(doc.Tool.Poetry.Dependencies[name]); v != "" && v != "*" {
			req.Specifier = v
			req.Raw = name + " " + v
		}
		reqs = append(reqs, req)
	}

	return reqs, nil
}

// poetryVersion returns the version constraint of a poetry dependency,
// which is either a plain string or a table with a "version" key.
func poetryVersion(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case map[string]any:
		if s, ok := val["version"].(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// ParseManifest parses data according to the manifest's file name.
// pyproject.toml is parsed as TOML; any other name is treated as a pip
// requirements file.
func ParseManifest(name string, data []byte) ([]Requirement, error) {
	if strings.EqualFold(path.Base(name), PyprojectFile) {
		return ParsePyproject(data)
	}
	return Parse(bytes.NewReader(data))
}
