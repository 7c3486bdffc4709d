// Package main hosts the snapvault CLI entrypoint and command graph.
//
// Commands run captures in-process under the same capture lock the daemon
// uses, browse the archive and the capture journal, evict duplicates by hand,
// and scaffold configuration. Behavior lives in the internal packages; this
// package only parses flags and renders output.
package main
