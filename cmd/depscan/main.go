// Package main provides the entry point for the depscan CLI.
//
// depscan is a rudimentary supply-chain scanner for Python dependencies.
// It reads requirements.txt from a GitHub repository, or the locally
// installed environment, and flags packages that look like typosquats,
// lack an install record, execute dynamic code, or mention credentials
// in their metadata.
//
// Usage:
//
//	depscan scan https://github.com/<owner>/<repo>
//	depscan local [package...]
//	depscan serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
