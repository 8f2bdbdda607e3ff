// Package preflight provides readiness checks for the executables and
// directories m4bmerge depends on.
//
// The merge command checks the output directory before starting work, and
// "m4bmerge doctor" runs RunAll to report every check at once.
package preflight
