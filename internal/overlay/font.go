package overlay

// glyph5x7 returns one row of the 5x7 bitmap for the characters the overlay
// labels use. Unknown characters render blank.
func glyph5x7(ch byte, row int) uint8 {
	switch ch {
	case 'A':
		return [7]uint8{0x0E, 0x11, 0x11, 0x1F, 0x11, 0x11, 0x11}[row]
	case 'C':
		return [7]uint8{0x0E, 0x11, 0x10, 0x10, 0x10, 0x11, 0x0E}[row]
	case 'E':
		return [7]uint8{0x1F, 0x10, 0x1E, 0x10, 0x10, 0x10, 0x1F}[row]
	case 'L':
		return [7]uint8{0x10, 0x10, 0x10, 0x10, 0x10, 0x10, 0x1F}[row]
	case 'P':
		return [7]uint8{0x1E, 0x11, 0x11, 0x1E, 0x10, 0x10, 0x10}[row]
	case 'R':
		return [7]uint8{0x1E, 0x11, 0x11, 0x1E, 0x14, 0x12, 0x11}[row]
	case 'T':
		return [7]uint8{0x1F, 0x04, 0x04, 0x04, 0x04, 0x04, 0x04}[row]
	default:
		return 0
	}
}
