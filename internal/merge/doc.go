// Package merge runs the audiobook merge: validate the request, probe every
// input, build the chapter table, choose one codec for the batch, re-encode
// the files that differ, concatenate, and remove intermediates.
//
// Load and convert fan out one goroutine per file and wait for all of them,
// so a run reports every bad input at once. Temporary files created by the
// convert stage are always removed, whether the merge succeeds or not.
package merge
