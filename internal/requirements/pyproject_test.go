package requirements

import (
	"testing"
)

func TestParsePyproject(t *testing.T) {
	t.Parallel()

	t.Run("project and poetry dependencies", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
[project]
name = "demo"
dependencies = [
  "httpx>=0.27",
  "rich",
]

[tool.poetry.dependencies]
python = "^3.11"
pydantic = "^2.5"
uvicorn = { version = "0.29.0", extras = ["standard"] }
Rich = "*"
`)
		reqs, err := ParsePyproject(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		names := make([]string, 0, len(reqs))
		for _, r := range reqs {
			names = append(names, r.Name)
		}
		want := []string{"httpx", "rich", "pydantic", "uvicorn"}
		if len(names) != len(want) {
			t.Fatalf("expected %v, got %v", want, names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("expected %v, got %v", want, names)
				break
			}
		}

		if reqs[2].Raw != "pydantic ^2.5" {
			t.Errorf("expected raw 'pydantic ^2.5', got '%s'", reqs[2].Raw)
		}
		if reqs[3].Specifier != "0.29.0" {
			t.Errorf("expected uvicorn specifier '0.29.0', got '%s'", reqs[3].Specifier)
		}
	})

	t.Run("invalid toml returns error", func(t *testing.T) {
		t.Parallel()

		if _, err := ParsePyproject([]byte("[project\n")); err == nil {
			t.Error("expected error for invalid toml")
		}
	})
}

func TestParseManifest(t *testing.T) {
	t.Parallel()

	t.Run("pyproject by name", func(t *testing.T) {
		t.Parallel()

		reqs, err := ParseManifest("sub/dir/pyproject.toml", []byte("[project]\ndependencies = [\"boto3\"]\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reqs) != 1 || reqs[0].Name != "boto3" {
			t.Errorf("unexpected result: %+v", reqs)
		}
	})

	t.Run("anything else is a requirements file", func(t *testing.T) {
		t.Parallel()

		reqs, err := ParseManifest("requirements-dev.txt", []byte("pytest\nblack==24.1.0\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reqs) != 2 {
			t.Errorf("expected 2 requirements, got %d", len(reqs))
		}
	})
}
