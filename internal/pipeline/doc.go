// Package pipeline runs a dependency scan as a sequence of steps.
//
// A repository scan fetches the manifest from GitHub, runs every check
// against each dependency and summarizes the result. A local scan replaces
// the first step with a listing of the installed environment. Each step
// receives the report built so far and fills in its part of it.
//
// BatchProcessor runs one pipeline per target with bounded concurrency
// using errgroup.
package pipeline
