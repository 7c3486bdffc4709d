// Package platform is the filesystem boundary used by the capture pipeline.
//
// FS exposes the fallible primitives the pipeline needs (existence checks,
// file creation, positioned writes, rename, directory enumeration, and
// creation timestamps) over rooted slash paths such as "/PNGs/temp.png".
// OSFS maps those paths onto a host directory. Writer adapts an FS file to the
// encoder sink: every write grows the file and lands at the tracked offset.
package platform
