// Package audiobook holds the value types and pure decisions behind a merge.
//
// Source is the probed snapshot of one input file, Target the codec a batch
// is normalized to, and Metadata the chapter table and tags written to the
// merged output. SelectTarget performs the majority vote over a batch and
// ExtensionFor decides the container of intermediate files.
//
// Nothing here touches the filesystem or runs external tools.
package audiobook
