// Package preflight provides readiness checks for the paths and devices a
// capture depends on.
//
// The CLI "snapvault status" command runs RunAll and prints each Result. The
// checks never modify the archive: the timestamp probe writes and removes a
// file under the state directory only.
package preflight
