// Package pixel converts source rows between pixel layouts.
package pixel

const (
	// SourceBytesPerPixel is the RGBA stride of frame source rows.
	SourceBytesPerPixel = 4
	// OutputBytesPerPixel is the RGB stride of encoded rows.
	OutputBytesPerPixel = 3
)

// StripAlpha copies the first three bytes of every 4-byte pixel in src into dst
// and returns the number of bytes written. len(src) must be a multiple of four
// and dst must hold at least len(src)/4*3 bytes.
func StripAlpha(dst, src []byte) int {
	pixels := len(src) / SourceBytesPerPixel
	n := pixels * OutputBytesPerPixel
	dst = dst[:n]
	for i, j := 0, 0; j < n; i, j = i+SourceBytesPerPixel, j+OutputBytesPerPixel {
		dst[j] = src[i]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i+2]
	}
	return n
}

// StripAlphaInPlace packs an RGBA row into RGB within the same buffer and
// returns the packed prefix. The write cursor never passes the read cursor, so
// forward iteration is overlap-safe.
func StripAlphaInPlace(row []byte) []byte {
	return row[:StripAlpha(row, row)]
}
