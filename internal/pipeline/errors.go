package pipeline

import "errors"

// ErrNoDependencies is returned when a scan has nothing to check, either
// because the manifest is empty or because every entry was ignored.
var ErrNoDependencies = errors.New("no dependencies found")
