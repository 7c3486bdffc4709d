// Package journal records capture results in a SQLite database under the
// state directory so the CLI can show history after the daemon has moved on.
//
// The journal is an audit trail only. Captures never read it and a journal
// failure never changes a capture outcome.
package journal
