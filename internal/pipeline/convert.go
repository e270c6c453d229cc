package pipeline

// Converter normalizes a captured frame into the pool slot. The decision of
// whether the source needs a 16-bit byte swap is made once at startup from
// the configured source byte order, so the per-frame path is branch-free.
type Converter struct {
	// Swap16 swaps the two bytes of every 16-bit pixel. Only meaningful for
	// 565 sources whose bus byte order is opposite to the renderer's.
	Swap16 bool
}

// Convert copies src into dst, applying the byte swap when configured.
// len(dst) must be >= len(src).
func (c Converter) Convert(dst, src []byte) {
	if !c.Swap16 {
		copy(dst, src)
		return
	}
	n := len(src) &^ 1
	for i := 0; i < n; i += 2 {
		dst[i] = src[i+1]
		dst[i+1] = src[i]
	}
}
