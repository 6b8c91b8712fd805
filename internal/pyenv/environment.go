package pyenv

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/depscan/internal/requirements"
)

// DefaultMaxFileSize is the default limit for Distribution.ReadFile.
const DefaultMaxFileSize int64 = 4 * 1024 * 1024

const (
	distInfoSuffix = ".dist-info"
	eggInfoSuffix  = ".egg-info"
)

// Environment is a set of site-packages directories searched in order.
type Environment struct {
	paths       []string
	maxFileSize int64

	once  sync.Once
	index map[string]*Distribution
	list  []*Distribution
	err   error
}

// Option configures an Environment.
type Option func(*Environment)

// WithMaxFileSize limits how many bytes ReadFile returns.
// Zero or a negative value restores the default.
func WithMaxFileSize(n int64) Option {
	return func(e *Environment) {
		if n > 0 {
			e.maxFileSize = n
		}
	}
}

// NewEnvironment creates an Environment over the given site-packages
// directories. If paths is empty, DiscoverSitePackages is used.
func NewEnvironment(paths []string, opts ...Option) *Environment {
	if len(paths) == 0 {
		paths = DiscoverSitePackages()
	}
	e := &Environment{
		paths:       paths,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Paths returns the searched site-packages directories.
func (e *Environment) Paths() []string {
	return append([]string(nil), e.paths...)
}

// Distributions lists every installed distribution, sorted by normalized
// name. When a name is installed in several directories, the first
// directory wins, matching the interpreter's import order.
func (e *Environment) Distributions() ([]*Distribution, error) {
	e.once.Do(e.scan)
	if e.err != nil {
		return nil, e.err
	}
	return append([]*Distribution(nil), e.list...), nil
}

// Distribution returns the installed distribution named name.
func (e *Environment) Distribution(name string) (*Distribution, error) {
	e.once.Do(e.scan)
	if e.err != nil {
		return nil, e.err
	}
	d, ok := e.index[requirements.NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}
	return d, nil
}

func (e *Environment) scan() {
	e.index = make(map[string]*Distribution)

	var readable int
	var lastErr error
	for _, root := range e.paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			lastErr = err
			continue
		}
		readable++

		for _, entry := range entries {
			d := newDistribution(root, entry, e.maxFileSize)
			if d == nil {
				continue
			}
			key := requirements.NormalizeName(d.Name)
			if _, dup := e.index[key]; dup {
				continue
			}
			e.index[key] = d
			e.list = append(e.list, d)
		}
	}

	if readable == 0 && lastErr != nil {
		e.err = fmt.Errorf("failed to read site-packages: %w", lastErr)
		return
	}

	sort.Slice(e.list, func(i, j int) bool {
		return requirements.NormalizeName(e.list[i].Name) < requirements.NormalizeName(e.list[j].Name)
	})
}

// newDistribution builds a Distribution from a metadata directory entry,
// or returns nil if the entry is not one.
func newDistribution(root string, entry os.DirEntry, maxFileSize int64) *Distribution {
	name := entry.Name()

	var (
		kind Kind
		stem string
	)
	switch {
	case strings.HasSuffix(name, distInfoSuffix) && entry.IsDir():
		kind = KindDistInfo
		stem = strings.TrimSuffix(name, distInfoSuffix)
	case strings.HasSuffix(name, eggInfoSuffix):
		kind = KindEggInfo
		stem = strings.TrimSuffix(name, eggInfoSuffix)
	default:
		return nil
	}

	// Wheel and egg names escape '-' in the project name as '_', so the
	// first '-' separates the name from the version.
	project, version, _ := strings.Cut(stem, "-")
	if project == "" {
		return nil
	}
	// Legacy eggs append "-py3.x" after the version.
	version, _, _ = strings.Cut(version, "-")

	return &Distribution{
		Name:        project,
		Version:     version,
		Kind:        kind,
		Root:        root,
		InfoPath:    filepath.Join(root, name),
		infoIsFile:  !entry.IsDir(),
		maxFileSize: maxFileSize,
	}
}
