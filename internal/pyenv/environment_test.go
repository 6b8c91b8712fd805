package pyenv

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeFile creates a file and its parent directories.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// installWheel lays out a dist-info distribution with one module.
func installWheel(t *testing.T, root, name, version, module, source string) {
	t.Helper()
	info := filepath.Join(root, name+"-"+version+".dist-info")
	writeFile(t, filepath.Join(info, "METADATA"), "Metadata-Version: 2.1\nName: "+name+"\nVersion: "+version+"\n")
	writeFile(t, filepath.Join(root, module), source)
	record := module + ",sha256=abc,10\n" + name + "-" + version + ".dist-info/METADATA,,\n" + name + "-" + version + ".dist-info/RECORD,,\n"
	writeFile(t, filepath.Join(info, "RECORD"), record)
}

func TestEnvironmentDistribution(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	installWheel(t, root, "typing_extensions", "4.12.2", "typing_extensions.py", "x = 1\n")
	installWheel(t, root, "Flask", "3.0.0", "flask/__init__.py", "")

	env := NewEnvironment([]string{root})

	t.Run("matches normalized names", func(t *testing.T) {
		t.Parallel()

		d, err := env.Distribution("Typing-Extensions")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Version != "4.12.2" {
			t.Errorf("expected version 4.12.2, got %s", d.Version)
		}
		if d.Kind != KindDistInfo {
			t.Errorf("expected dist-info, got %s", d.Kind)
		}
	})

	t.Run("missing package returns ErrPackageNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := env.Distribution("django")
		if !errors.Is(err, ErrPackageNotFound) {
			t.Errorf("expected ErrPackageNotFound, got %v", err)
		}
	})

	t.Run("lists distributions sorted", func(t *testing.T) {
		t.Parallel()

		dists, err := env.Distributions()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(dists) != 2 {
			t.Fatalf("expected 2 distributions, got %d", len(dists))
		}
		if dists[0].Name != "Flask" || dists[1].Name != "typing_extensions" {
			t.Errorf("unexpected order: %s, %s", dists[0].Name, dists[1].Name)
		}
	})
}

func TestEnvironmentFirstPathWins(t *testing.T) {
	t.Parallel()

	venv := t.TempDir()
	system := t.TempDir()
	installWheel(t, venv, "requests", "2.32.3", "requests/__init__.py", "")
	installWheel(t, system, "requests", "2.25.1", "requests/__init__.py", "")

	env := NewEnvironment([]string{venv, system})
	d, err := env.Distribution("requests")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Version != "2.32.3" {
		t.Errorf("expected the first path's version 2.32.3, got %s", d.Version)
	}
	if d.Root != venv {
		t.Errorf("expected root %s, got %s", venv, d.Root)
	}
}

func TestEnvironmentUnreadablePaths(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{filepath.Join(t.TempDir(), "missing")})
	if _, err := env.Distributions(); err == nil {
		t.Error("expected error when no site-packages directory is readable")
	}
}

func TestEnvironmentPaths(t *testing.T) {
	t.Parallel()

	env := NewEnvironment([]string{"/a", "/b"})
	paths := env.Paths()
	paths[0] = "/changed"
	if env.Paths()[0] != "/a" {
		t.Error("expected Paths to return a copy")
	}
}

func TestDiscoverSitePackages(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	venv := filepath.Join(base, "venv")
	home := filepath.Join(base, "home")
	system := filepath.Join(base, "usr")

	venvSite := filepath.Join(venv, "lib", "python3.12", "site-packages")
	userSite := filepath.Join(home, ".local", "lib", "python3.11", "site-packages")
	systemSite := filepath.Join(system, "lib", "python3", "dist-packages")
	for _, dir := range []string{venvSite, userSite, systemSite} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	getenv := func(key string) string {
		if key == "VIRTUAL_ENV" {
			return venv
		}
		return ""
	}

	got := discoverSitePackages(getenv, home, []string{system, system})
	want := []string{venvSite, userSite, systemSite}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
			break
		}
	}
}
