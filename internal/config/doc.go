// Package config loads, normalizes, and validates snapvault configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SNAPVAULT_ALBUM_ROOT
// environment fallback. Archive and duplicate paths are rooted slash paths
// inside the album root, not host paths.
//
// The duplicates marker file is read through MarkerFlag; callers read it once
// and pass the result along rather than re-checking per capture.
package config
