// Package database provides SQLite-based storage for depscan.
//
// The ScanDB stores:
//   - Scan reports for history and comparison
//   - PyPI lookup results, reused across runs until they expire
//
// SQLite is accessed through modernc.org/sqlite, which is CGO-free, so the
// database is a single file in the XDG data directory and the binary stays
// easy to cross-compile.
package database
