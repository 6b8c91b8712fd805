package requirements

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize bounds a single logical line of a requirements file.
const maxLineSize = 1024 * 1024

var (
	// reComment matches a trailing comment. A '#' must start the line or
	// follow whitespace, so URL fragments such as "#egg=" are kept.
	reComment = regexp.MustCompile(`(^|\s+)#.*$`)

	// rePerRequirementOption matches per-requirement options and everything after them.
	rePerRequirementOption = regexp.MustCompile(`\s+(?:--hash|--global-option|--config-settings|-C)\b.*$`)

	// reRequirement splits a PEP 508 requirement into name, extras and the rest.
	reRequirement = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[([^\]]*)\])?\s*(.*)$`)

	// reEgg extracts the project name from a VCS or URL requirement.
	reEgg = regexp.MustCompile(`#egg=([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)

	// reNormalize collapses runs of separators for PEP 503 normalization.
	reNormalize = regexp.MustCompile(`[-_.]+`)
)

// Requirement is a single declared dependency.
type Requirement struct {
	// Raw is the requirement as written, with comments and options removed.
	Raw string `json:"raw"`

	// Name is the project name as written in the requirement.
	Name string `json:"name"`

	// Extras lists the requested optional features, if any.
	Extras []string `json:"extras,omitempty"`

	// Specifier is the version specifier or URL reference.
	Specifier string `json:"specifier,omitempty"`

	// Marker is the environment marker following ';'.
	Marker string `json:"marker,omitempty"`

	// Line is the 1-based line the requirement starts on. Zero when unknown.
	Line int `json:"line,omitempty"`
}

// NormalizedName returns the PEP 503 normalized project name.
func (r Requirement) NormalizedName() string {
	return NormalizeName(r.Name)
}

// String returns the raw requirement.
func (r Requirement) String() string {
	return r.Raw
}

// NormalizeName applies PEP 503 normalization: runs of '-', '_' and '.'
// become a single '-' and the result is lower-cased.
func NormalizeName(name string) string {
	return strings.ToLower(reNormalize.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// Parse reads a pip requirements file.
//
// The input may be UTF-8 or UTF-16 with a byte order mark. Line
// continuations are joined, comments are removed, and blank lines and pip
// options (-r, -e, --index-url, ...) are skipped. Lines that do not name a
// project are skipped as well.
func Parse(r io.Reader) ([]Requirement, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		reqs      []Requirement
		lineNo    int
		startLine int
		logical   strings.Builder
	)

	flush := func() {
		line := strings.TrimSpace(logical.String())
		logical.Reset()
		if req, ok := parseLine(line); ok {
			req.Line = startLine
			reqs = append(reqs, req)
		}
	}

	for scanner.Scan() {
		lineNo++
		text := reComment.ReplaceAllString(scanner.Text(), "")
		if logical.Len() == 0 {
			startLine = lineNo
		}

		if strings.HasSuffix(text, `\`) {
			logical.WriteString(strings.TrimSuffix(text, `\`))
			continue
		}
		logical.WriteString(text)
		flush()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read requirements: %w", err)
	}
	if logical.Len() > 0 {
		flush()
	}

	return reqs, nil
}

// ParseRequirement parses a single PEP 508 requirement string.
// It returns false when the string does not name a project.
func ParseRequirement(s string) (Requirement, bool) {
	return parseLine(strings.TrimSpace(s))
}

func parseLine(line string) (Requirement, bool) {
	if line == "" || strings.HasPrefix(line, "-") {
		return Requirement{}, false
	}

	line = strings.TrimSpace(rePerRequirementOption.ReplaceAllString(line, ""))
	req := Requirement{Raw: line}

	spec := line
	if before, after, found := strings.Cut(line, ";"); found {
		spec = strings.TrimSpace(before)
		req.Marker = strings.TrimSpace(after)
	}

	m := reRequirement.FindStringSubmatch(spec)
	if m != nil && isSpecifierStart(m[3]) {
		req.Name = m[1]
		req.Extras = splitExtras(m[2])
		req.Specifier = strings.TrimSpace(m[3])
		return req, true
	}

	// URL requirements such as "git+https://...#egg=name".
	if egg := reEgg.FindStringSubmatch(spec); egg != nil {
		req.Name = egg[1]
		req.Specifier = spec
		return req, true
	}

	return Requirement{}, false
}

// isSpecifierStart reports whether rest can follow a project name.
func isSpecifierStart(rest string) bool {
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '<', '>', '=', '!', '~', '@', '(':
		return true
	}
	return false
}

func splitExtras(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	extras := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			extras = append(extras, p)
		}
	}
	return extras
}

// Without returns reqs minus those whose normalized name is in names.
func Without(reqs []Requirement, names ...string) []Requirement {
	if len(names) == 0 {
		return reqs
	}
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[NormalizeName(n)] = struct{}{}
	}
	result := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := skip[r.NormalizedName()]; ok {
			continue
		}
		result = append(result, r)
	}
	return result
}
