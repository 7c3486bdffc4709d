// Package logs reads the daemon log for "snapvault logs": the last N lines,
// then optionally follows appended lines until the context ends.
package logs
