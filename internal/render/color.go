package render

import "image/color"

// parseHexColor parses "#rrggbb"; anything else renders white.
func parseHexColor(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{
		R: hexToByte(hex[1], hex[2]),
		G: hexToByte(hex[3], hex[4]),
		B: hexToByte(hex[5], hex[6]),
		A: 255,
	}
}

func hexToByte(h1, h2 byte) uint8 {
	return hexCharToNibble(h1)<<4 | hexCharToNibble(h2)
}

func hexCharToNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// withAlpha applies a 0..1 opacity to an opaque color. The result is
// non-premultiplied so gg and the pixel writer blend it the same way.
func withAlpha(c color.RGBA, alpha float64) color.NRGBA {
	out := color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	switch {
	case alpha <= 0:
		out.A = 0
	case alpha < 1:
		out.A = uint8(alpha * 255)
	}
	return out
}
