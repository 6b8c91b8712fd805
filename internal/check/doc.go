// Package check runs supply-chain heuristics against Python dependencies.
//
// Four checks are built in:
//   - typosquatting: the name does not resolve on PyPI
//   - supply_chain_attack: the installed distribution has no RECORD file
//   - code_injection: installed .py files call exec( or eval(
//   - credential_harvesting: metadata mentions both username and password
//
// Each check yields a 0/1 flag. The Analyzer averages the flags of a
// package into a percentage. A check that fails to run counts as flagged.
// The heuristics are deliberately shallow: they are indicators for manual
// review, not a verdict.
package check
