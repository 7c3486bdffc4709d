// Package capture runs one capture from frame source to published archive
// entry.
//
// A Pipeline opens the frame source, encodes rows into the archive temp file
// through the configured strategy, publishes the temp file by rename, and then
// optionally evicts the nearest duplicate. Every resource acquired along the
// way is registered for release and released exactly once, in reverse order,
// whichever exit path the capture takes.
//
// Callers must not run two captures concurrently against the same archive:
// both would write the same temp file. The daemon and CLI serialize captures
// with a file lock before calling Capture.
package capture
