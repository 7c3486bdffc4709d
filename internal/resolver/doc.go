// Package resolver evicts the duplicate file nearest in time to a capture.
//
// A Resolver walks a tree of the platform filesystem, considers every file
// with the requested extension, and deletes the single one whose timestamp is
// closest to the reference. Timestamps come from the platform creation time
// when available and from a fixed-width YYYYMMDDHHMMSS file name prefix
// otherwise. Subdirectories that cannot be opened are logged and skipped.
//
// Enumeration order is whatever the filesystem returns and is not sorted, so
// when two candidates share the smallest delta the first one seen wins and
// which one that is depends on the filesystem.
package resolver
