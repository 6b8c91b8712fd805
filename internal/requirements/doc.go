// Package requirements parses Python dependency manifests.
//
// Two formats are understood: pip requirements files (requirements.txt and
// friends) and pyproject.toml. Both produce an ordered list of Requirement
// values whose Name is suitable for package index lookups.
package requirements
