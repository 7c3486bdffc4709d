// Package archive owns the date-partitioned archive tree.
//
// Captures are encoded into a single temp file and published by one rename
// into DIR/YYYY/MM/DD/YYYY-MM-DD_HH-MM-SS.EXT, named from the temp file's
// platform creation time. Day directories are created lazily, top down, the
// first time a capture lands in them. Inventory and orphan-temp helpers back
// the CLI.
package archive
