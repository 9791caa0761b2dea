// Package geom holds the geometry value types shared by the host model and the
// external API, and the fixed millimetre/foot conversion between them.
//
// Everything that crosses the API boundary is in millimetres (Point).
// Everything inside the host document is in decimal feet (XYZ, Box).
package geom

import "math"

// MillimetersPerFoot is the fixed linear conversion factor between the two unit systems.
const MillimetersPerFoot = 304.8

// ToInternal converts millimetres to feet.
func ToInternal(mm float64) float64 { return mm / MillimetersPerFoot }

// FromInternal converts feet to millimetres.
func FromInternal(ft float64) float64 { return ft * MillimetersPerFoot }

// AreaFromInternal converts square feet to square millimetres.
func AreaFromInternal(sqft float64) float64 {
	return sqft * MillimetersPerFoot * MillimetersPerFoot
}

// VolumeFromInternal converts cubic feet to cubic millimetres.
func VolumeFromInternal(cuft float64) float64 {
	return cuft * MillimetersPerFoot * MillimetersPerFoot * MillimetersPerFoot
}

// Point is an external 3D point in millimetres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Internal converts the point to host units.
func (p Point) Internal() XYZ {
	return XYZ{X: ToInternal(p.X), Y: ToInternal(p.Y), Z: ToInternal(p.Z)}
}

// XYZ is a host-internal point in feet.
type XYZ struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// External converts the point to millimetres.
func (p XYZ) External() Point {
	return Point{X: FromInternal(p.X), Y: FromInternal(p.Y), Z: FromInternal(p.Z)}
}

// Add returns p+q.
func (p XYZ) Add(q XYZ) XYZ { return XYZ{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z} }

// DistanceTo returns the Euclidean distance between p and q.
func (p XYZ) DistanceTo(q XYZ) float64 {
	dx, dy, dz := p.X-q.X, p.Y-q.Y, p.Z-q.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Midpoint returns the point halfway between p and q.
func (p XYZ) Midpoint(q XYZ) XYZ {
	return XYZ{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2, Z: (p.Z + q.Z) / 2}
}

// Line is a bounded straight curve in host units.
type Line struct {
	Start XYZ `json:"start"`
	End   XYZ `json:"end"`
}

// Length returns the curve length.
func (l Line) Length() float64 { return l.Start.DistanceTo(l.End) }

// Box is an axis-aligned bounding box in host units.
type Box struct {
	Min XYZ `json:"min"`
	Max XYZ `json:"max"`
}

// BoxOf returns the smallest box containing all points. ok is false for no points.
func BoxOf(points ...XYZ) (Box, bool) {
	if len(points) == 0 {
		return Box{}, false
	}
	b := Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Min.Z = math.Min(b.Min.Z, p.Z)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
		b.Max.Z = math.Max(b.Max.Z, p.Z)
	}
	return b, true
}

// Intersects reports whether two boxes overlap; touching faces count as overlap.
func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// Height returns |max.z - min.z|.
func (b Box) Height() float64 { return math.Abs(b.Max.Z - b.Min.Z) }

// External converts the box corners to millimetres.
func (b Box) External() (Point, Point) {
	return b.Min.External(), b.Max.External()
}
