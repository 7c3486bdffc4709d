// Package daemon runs the long-lived capture process.
//
// It holds a flock-based single-instance lock, reads the duplicate marker once
// at start, cleans up after a previous crash, and then feeds trigger events
// into a serialized capture loop. Captures themselves run through
// captureexec, which takes the cross-process capture lock so CLI captures and
// daemon captures never overlap.
package daemon
