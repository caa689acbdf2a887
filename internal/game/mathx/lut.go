package mathx

import "math"

// LUTSize is the resolution of the sine table. Must be a power of two.
const LUTSize = 4096

const (
	lutMask  = LUTSize - 1
	lutScale = LUTSize / (2 * math.Pi)
)

// SqrtTableSize bounds the integer square-root cache.
const SqrtTableSize = 1 << 16

var (
	sinLUT  [LUTSize]float64
	sqrtLUT [SqrtTableSize]float64
)

func init() {
	for i := 0; i < LUTSize; i++ {
		sinLUT[i] = math.Sin(2 * math.Pi * float64(i) / LUTSize)
	}
	for i := 0; i < SqrtTableSize; i++ {
		sqrtLUT[i] = math.Sqrt(float64(i))
	}
}

// lutIndex maps any angle (radians, may be negative) onto the table.
func lutIndex(angle float64) int {
	return int(math.Floor(angle*lutScale+0.5)) & lutMask
}

// Sin returns a table-driven approximation of math.Sin.
// Error is bounded by the table step (about 1.5e-3 radians).
func Sin(angle float64) float64 {
	return sinLUT[lutIndex(angle)]
}

// Cos returns a table-driven approximation of math.Cos.
func Cos(angle float64) float64 {
	return sinLUT[(lutIndex(angle)+LUTSize/4)&lutMask]
}

// FromAngle returns the unit vector for angle using the lookup table.
func FromAngle(angle float64) Vec2 {
	i := lutIndex(angle)
	return Vec2{X: sinLUT[(i+LUTSize/4)&lutMask], Y: sinLUT[i]}
}

// Sqrt returns the square root of v, served from the cache when v is a
// small non-negative integer and computed otherwise.
func Sqrt(v float64) float64 {
	if v >= 0 && v < SqrtTableSize {
		if i := int(v); float64(i) == v {
			return sqrtLUT[i]
		}
	}
	return math.Sqrt(v)
}
