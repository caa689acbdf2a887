package render

import (
	"image/color"
	"math"
)

// pixelWriter draws small primitives straight into an RGBA pixel buffer,
// skipping gg path setup. Used for particles, which come in hundreds.
type pixelWriter struct {
	buffer []byte
	width  int
	height int
	stride int
}

func newPixelWriter(width, height int, buffer []byte) *pixelWriter {
	return &pixelWriter{buffer: buffer, width: width, height: height, stride: width * 4}
}

// blend writes c over an opaque destination pixel.
func (r *pixelWriter) blend(idx int, c color.NRGBA) {
	if c.A == 255 {
		r.buffer[idx] = c.R
		r.buffer[idx+1] = c.G
		r.buffer[idx+2] = c.B
		r.buffer[idx+3] = 255
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA
	r.buffer[idx] = uint8(float64(c.R)*srcA + float64(r.buffer[idx])*invA)
	r.buffer[idx+1] = uint8(float64(c.G)*srcA + float64(r.buffer[idx+1])*invA)
	r.buffer[idx+2] = uint8(float64(c.B)*srcA + float64(r.buffer[idx+2])*invA)
	r.buffer[idx+3] = 255
}

// fillCircle draws a clipped, alpha-blended filled circle.
func (r *pixelWriter) fillCircle(cx, cy int, radius float64, c color.NRGBA) {
	if c.A == 0 || radius <= 0 {
		return
	}
	rad := int(radius + 0.5)
	radSq := radius * radius

	y1 := max(0, cy-rad)
	y2 := min(r.height, cy+rad+1)
	for py := y1; py < y2; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		if dySq > radSq {
			continue
		}
		xExtent := math.Sqrt(radSq - dySq)
		x1 := max(0, cx-int(xExtent+0.5))
		x2 := min(r.width, cx+int(xExtent+0.5)+1)

		rowStart := py * r.stride
		for px := x1; px < x2; px++ {
			dx := float64(px - cx)
			if dx*dx+dySq <= radSq {
				r.blend(rowStart+px*4, c)
			}
		}
	}
}
