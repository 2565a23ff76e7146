package scene

import (
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

// The geometry type of a primitive. The values match the geometry tag stored
// in ray records after intersection.
type GeometryType int32

const (
	SphereGeometry GeometryType = iota
	TriangleGeometry
)

func (g GeometryType) String() string {
	switch g {
	case SphereGeometry:
		return "sphere"
	case TriangleGeometry:
		return "triangle"
	}
	return "unknown"
}

// Primitive bounding boxes are expanded by this amount on each side so that
// axis-aligned triangles never produce zero-volume boxes.
const bboxPadding float32 = 1e-4

// A scene primitive. Triangles use Vertices and Normals (one normal per
// vertex); spheres use Center and Radius. Primitives are immutable once the
// scene has been loaded.
type Primitive struct {
	Type GeometryType

	Vertices [3]types.Vec3
	Normals  [3]types.Vec3

	Center types.Vec3
	Radius float32

	MaterialIndex int32
}

// Create a triangle primitive. If no normals are specified a flat normal is
// generated from the winding order.
func NewTriangle(v0, v1, v2 types.Vec3, materialIndex int32, normals ...types.Vec3) Primitive {
	prim := Primitive{
		Type:          TriangleGeometry,
		Vertices:      [3]types.Vec3{v0, v1, v2},
		MaterialIndex: materialIndex,
	}

	if len(normals) == 3 {
		for i := range normals {
			prim.Normals[i] = normals[i].Normalize()
		}
	} else {
		flat := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()
		prim.Normals = [3]types.Vec3{flat, flat, flat}
	}

	prim.Center = v0.Add(v1).Add(v2).Mul(1.0 / 3.0)
	return prim
}

// Create a sphere primitive.
func NewSphere(center types.Vec3, radius float32, materialIndex int32) Primitive {
	return Primitive{
		Type:          SphereGeometry,
		Center:        center,
		Radius:        math32.Abs(radius),
		MaterialIndex: materialIndex,
	}
}

// BBox returns the padded axis-aligned bounding box of the primitive.
func (p *Primitive) BBox() [2]types.Vec3 {
	pad := types.XYZ(bboxPadding, bboxPadding, bboxPadding)
	if p.Type == SphereGeometry {
		r := types.XYZ(p.Radius, p.Radius, p.Radius).Add(pad)
		return [2]types.Vec3{p.Center.Sub(r), p.Center.Add(r)}
	}

	min := types.MinVec3(p.Vertices[0], types.MinVec3(p.Vertices[1], p.Vertices[2]))
	max := types.MaxVec3(p.Vertices[0], types.MaxVec3(p.Vertices[1], p.Vertices[2]))
	return [2]types.Vec3{min.Sub(pad), max.Add(pad)}
}

// Centroid used for partitioning.
func (p *Primitive) Centroid() types.Vec3 {
	return p.Center
}

// Area returns the surface area of the primitive.
func (p *Primitive) Area() float32 {
	if p.Type == SphereGeometry {
		return 4 * math32.Pi * p.Radius * p.Radius
	}
	return 0.5 * p.Vertices[1].Sub(p.Vertices[0]).Cross(p.Vertices[2].Sub(p.Vertices[0])).Len()
}
