package pyenv

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
)

// DiscoverSitePackages returns the site-packages directories of the active
// virtual environment (VIRTUAL_ENV or CONDA_PREFIX), the user site and the
// system interpreters, in that order. Only existing directories are returned.
func DiscoverSitePackages() []string {
	home, _ := os.UserHomeDir()
	return discoverSitePackages(os.Getenv, home, systemPrefixes())
}

func systemPrefixes() []string {
	if runtime.GOOS == "windows" {
		return nil
	}
	return []string{"/usr/local", "/usr", "/opt/homebrew"}
}

func discoverSitePackages(getenv func(string) string, home string, prefixes []string) []string {
	var candidates []string

	for _, key := range []string{"VIRTUAL_ENV", "CONDA_PREFIX"} {
		if prefix := getenv(key); prefix != "" {
			candidates = append(candidates, prefixSitePackages(prefix)...)
			// Windows layout.
			candidates = append(candidates, filepath.Join(prefix, "Lib", "site-packages"))
		}
	}

	if home != "" {
		candidates = append(candidates, prefixSitePackages(filepath.Join(home, ".local"))...)
	}

	for _, prefix := range prefixes {
		candidates = append(candidates, prefixSitePackages(prefix)...)
		// Debian ships distro packages in an unversioned dist-packages.
		candidates = append(candidates, filepath.Join(prefix, "lib", "python3", "dist-packages"))
	}

	seen := make(map[string]struct{}, len(candidates))
	result := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = filepath.Clean(c)
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			result = append(result, c)
		}
	}
	return result
}

// prefixSitePackages expands <prefix>/lib/python3*/{site,dist}-packages.
func prefixSitePackages(prefix string) []string {
	var result []string
	for _, sub := range []string{"site-packages", "dist-packages"} {
		matches, err := filepath.Glob(filepath.Join(prefix, "lib", "python3*", sub))
		if err != nil {
			continue
		}
		sort.Strings(matches)
		result = append(result, matches...)
	}
	return result
}
