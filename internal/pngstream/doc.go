// Package pngstream writes 8-bit RGB PNG images one row at a time.
//
// The encoder never sees a file descriptor. It is bound to a Sink that
// receives every encoded byte through Write and a final Flush, so callers decide
// where output lands. Memory stays bounded by a handful of row buffers and the
// zlib window regardless of image height.
//
// Lifecycle: NewEncoder allocates buffers, Bind writes the signature and header
// to the sink, WriteRow is called exactly Height times top to bottom, and Finish
// closes the stream. Close releases everything and may be called at any point,
// including after a failure; an image closed before Finish is left without an
// IEND chunk and never decodes as complete.
package pngstream
