package geom

import "math"

// Vec3 represents a point in world space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns the component-wise difference.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale multiplies each component by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Length returns the euclidean norm.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Length()
}

// Distance2D ignores the vertical axis.
func Distance2D(a, b Vec3) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Within reports whether b lies within radius of a.
func Within(a, b Vec3, radius float64) bool {
	d := a.Sub(b)
	return d.X*d.X+d.Y*d.Y+d.Z*d.Z <= radius*radius
}

// MoveTowards advances from toward target by at most step.
func MoveTowards(from, target Vec3, step float64) Vec3 {
	delta := target.Sub(from)
	dist := delta.Length()
	if dist <= step || dist == 0 {
		return target
	}
	return from.Add(delta.Scale(step / dist))
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// SegmentIntersectsBox reports whether the segment a→b passes through the
// axis-aligned box spanning min and max.
func SegmentIntersectsBox(a, b, min, max Vec3) bool {
	tmin, tmax := 0.0, 1.0
	dir := b.Sub(a)
	axes := [3][4]float64{
		{a.X, dir.X, min.X, max.X},
		{a.Y, dir.Y, min.Y, max.Y},
		{a.Z, dir.Z, min.Z, max.Z},
	}
	for _, axis := range axes {
		origin, d, lo, hi := axis[0], axis[1], axis[2], axis[3]
		if math.Abs(d) < 1e-12 {
			if origin < lo || origin > hi {
				return false
			}
			continue
		}
		t1 := (lo - origin) / d
		t2 := (hi - origin) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}
