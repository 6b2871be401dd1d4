package mathx

import "math"

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func MaxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RoundHalfUp rounds .5 toward +Inf, unlike math.Round which rounds away from zero.
func RoundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// DistSqToSegment returns the squared distance from (px,py) to segment (ax,ay)-(bx,by).
func DistSqToSegment(px, py, ax, ay, bx, by float64) float64 {
	dx, dy := bx-ax, by-ay
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return (px-ax)*(px-ax) + (py-ay)*(py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / l2
	t = Clamp(t, 0, 1)
	cx, cy := ax+t*dx, ay+t*dy
	return (px-cx)*(px-cx) + (py-cy)*(py-cy)
}
