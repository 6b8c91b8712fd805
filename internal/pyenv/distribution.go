package pyenv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Kind is the metadata layout of an installed distribution.
type Kind int

const (
	// KindDistInfo is a wheel-style *.dist-info directory.
	KindDistInfo Kind = iota
	// KindEggInfo is a setuptools *.egg-info directory or file.
	KindEggInfo
)

// String returns the metadata directory suffix.
func (k Kind) String() string {
	if k == KindEggInfo {
		return "egg-info"
	}
	return "dist-info"
}

// Distribution is an installed Python distribution.
type Distribution struct {
	// Name is the project name from the metadata directory name.
	Name string
	// Version is the installed version from the metadata directory name.
	Version string
	// Kind is the metadata layout.
	Kind Kind
	// Root is the site-packages directory containing the distribution.
	Root string
	// InfoPath is the metadata directory (or file, for legacy eggs).
	InfoPath string

	infoIsFile  bool
	maxFileSize int64
}

// RecordEntry is one row of a RECORD file.
type RecordEntry struct {
	// Path is relative to the site-packages root, slash separated.
	Path string
	// Hash is "<algorithm>=<digest>", empty for RECORD itself and .pyc files.
	Hash string
	// Size in bytes, or -1 when not recorded.
	Size int64
}

// Metadata is the parsed core metadata of a distribution.
type Metadata struct {
	Name         string
	Version      string
	Summary      string
	Author       string
	AuthorEmail  string
	License      string
	HomePage     string
	RequiresDist []string
}

// HasRecord reports whether the distribution ships the RECORD file that
// pip writes on install.
func (d *Distribution) HasRecord() bool {
	if d.infoIsFile {
		return false
	}
	info, err := os.Stat(filepath.Join(d.InfoPath, "RECORD"))
	return err == nil && !info.IsDir()
}

// Files lists the installed files.
//
// dist-info distributions read RECORD. egg-info distributions fall back to
// installed-files.txt, whose paths are relative to the egg-info directory.
// A distribution with neither returns an empty list.
func (d *Distribution) Files() ([]RecordEntry, error) {
	if d.infoIsFile {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(d.InfoPath, "RECORD"))
	if err == nil {
		return parseRecord(data)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read RECORD of %s: %w", d.Name, err)
	}

	data, err = os.ReadFile(filepath.Join(d.InfoPath, "installed-files.txt"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read installed-files.txt of %s: %w", d.Name, err)
	}
	return parseInstalledFiles(filepath.Base(d.InfoPath), data), nil
}

// RawMetadata returns the METADATA (dist-info) or PKG-INFO (egg-info) file.
func (d *Distribution) RawMetadata() ([]byte, error) {
	var path string
	switch {
	case d.infoIsFile:
		path = d.InfoPath
	case d.Kind == KindEggInfo:
		path = filepath.Join(d.InfoPath, "PKG-INFO")
	default:
		path = filepath.Join(d.InfoPath, "METADATA")
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is inside a site-packages metadata directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoMetadata, d.Name)
		}
		return nil, fmt.Errorf("failed to read metadata of %s: %w", d.Name, err)
	}
	return data, nil
}

// Metadata parses the core metadata headers.
func (d *Distribution) Metadata() (*Metadata, error) {
	raw, err := d.RawMetadata()
	if err != nil {
		return nil, err
	}
	return parseMetadata(raw)
}

// ReadFile reads a file relative to the site-packages root.
// Non-local paths return ErrOutsideRoot; symlinks leaving the root fail to open.
// Files larger than the environment's limit return ErrFileTooLarge.
func (d *Distribution) ReadFile(rel string) ([]byte, error) {
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}

	root, err := os.OpenRoot(d.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open site-packages root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	limit := d.maxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, rel)
	}
	return data, nil
}

func parseRecord(data []byte) ([]RecordEntry, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse RECORD: %w", err)
	}

	entries := make([]RecordEntry, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		entry := RecordEntry{Path: row[0], Size: -1}
		if len(row) > 1 {
			entry.Hash = row[1]
		}
		if len(row) > 2 && row[2] != "" {
			if n, err := strconv.ParseInt(row[2], 10, 64); err == nil {
				entry.Size = n
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseInstalledFiles(infoDir string, data []byte) []RecordEntry {
	var entries []RecordEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		// Entries are relative to the egg-info directory.
		p := filepath.ToSlash(filepath.Clean(filepath.Join(infoDir, filepath.FromSlash(line))))
		entries = append(entries, RecordEntry{Path: p, Size: -1})
	}
	return entries
}

func parseMetadata(raw []byte) (*Metadata, error) {
	// Core metadata is an RFC 822 style header block followed by the long description.
	msg, err := mail.ReadMessage(bufio.NewReader(bytes.NewReader(normalizeNewlines(raw))))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if msg == nil {
		return &Metadata{}, nil
	}

	h := msg.Header
	return &Metadata{
		Name:         h.Get("Name"),
		Version:      h.Get("Version"),
		Summary:      h.Get("Summary"),
		Author:       h.Get("Author"),
		AuthorEmail:  h.Get("Author-Email"),
		License:      h.Get("License"),
		HomePage:     h.Get("Home-Page"),
		RequiresDist: h["Requires-Dist"],
	}, nil
}

// normalizeNewlines makes sure the header block is terminated, since
// metadata without a description may end right after the last header.
func normalizeNewlines(raw []byte) []byte {
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	if !bytes.Contains(raw, []byte("\n\n")) {
		raw = append(bytes.TrimRight(raw, "\n"), '\n', '\n')
	}
	return raw
}
