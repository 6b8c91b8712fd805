package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/depscan/internal/requirements"
)

// upstreams are fake GitHub and PyPI APIs.
type upstreams struct {
	github *httptest.Server
	pypi   *httptest.Server
}

// newUpstreams serves manifests keyed by "owner/repo/path" and answers
// PyPI lookups for the known project names.
func newUpstreams(t *testing.T, manifests map[string]string, known ...string) *upstreams {
	t.Helper()

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/repos/")
		key = strings.Replace(key, "/contents/", "/", 1)
		content, ok := manifests[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		})
	}))
	t.Cleanup(gh.Close)

	py := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		if !slices.Contains(known, requirements.NormalizeName(name)) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"info": map[string]string{"name": name, "version": "1.0.0", "summary": "test package"},
		})
	}))
	t.Cleanup(py.Close)

	return &upstreams{github: gh, pypi: py}
}

// flags returns the command-line flags pointing a command at the fakes.
func (u *upstreams) flags(env *testEnv) []string {
	return []string{
		"--github-api-url", u.github.URL,
		"--pypi-url", u.pypi.URL,
		"--site-packages", env.sitePackages,
		"--config", env.configPath,
		"--db-dir", env.dbDir,
		"--rate-limit", "0",
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// installPackage lays out a dist-info distribution with one module.
func installPackage(t *testing.T, root, name, version, metadata, source string) {
	t.Helper()
	module := strings.ToLower(name) + "/__init__.py"
	info := name + "-" + version + ".dist-info"
	writeFile(t, filepath.Join(root, info, "METADATA"),
		"Metadata-Version: 2.1\nName: "+name+"\nVersion: "+version+"\n"+metadata)
	writeFile(t, filepath.Join(root, module), source)
	writeFile(t, filepath.Join(root, info, "RECORD"),
		module+",sha256=abc,10\n"+info+"/METADATA,,\n"+info+"/RECORD,,\n")
}

// testEnv is a site-packages directory and an empty configuration file.
type testEnv struct {
	sitePackages string
	configPath   string
	dbDir        string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		sitePackages: filepath.Join(dir, "site-packages"),
		configPath:   filepath.Join(dir, "depscan.yaml"),
		dbDir:        filepath.Join(dir, "data"),
	}
	writeFile(t, env.configPath, "defaults:\n  ignore: [pip]\n")
	installPackage(t, env.sitePackages, "Flask", "3.0.0", "Summary: A simple framework\n", "app = None\n")
	return env
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
