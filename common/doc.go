// Package common provides helpers shared by the operations packages: cached go-reader and go-writer
// instances, local file read/write wrappers around them, file fingerprints, perceptual image hashes
// and JSON encoding helpers.
//
// Note that there is no shared pool of gocloud.dev/blob buckets. Callers open (and close) their own.
package common
