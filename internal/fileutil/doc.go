// Package fileutil holds the small filesystem helpers the merge pipeline
// shares: unique temporary names, tolerant removal, and the advisory output
// lock.
package fileutil
