package wavefront

import (
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

const (
	// Hits closer than this distance are ignored to avoid self-intersection.
	intersectEpsilon float32 = 1e-3

	// Determinants below this threshold mark parallel rays or degenerate
	// triangles.
	detEpsilon float32 = 1e-9
)

// Intersect a ray with the slabs of an AABB. The returned entry distance is
// clamped to 0 and the box only counts as hit when it is entered no farther
// than maxDist. NaN slab distances (ray origin on a slab plane of an axis the
// ray is parallel to) do not constrain the interval.
func intersectBox(min, max, origin, invDir types.Vec3, maxDist float32) (float32, bool) {
	tmin, tmax := float32(0), maxDist
	for axis := 0; axis < 3; axis++ {
		t1 := (min[axis] - origin[axis]) * invDir[axis]
		t2 := (max[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
	}
	return tmin, tmin <= tmax
}

// Moller-Trumbore ray/triangle test. Returns the hit distance and the
// barycentric coordinates of the hit. Degenerate triangles never report a hit.
func intersectTriangle(prim *scene.Primitive, origin, dir types.Vec3) (t, u, v float32, hit bool) {
	e1 := prim.Vertices[1].Sub(prim.Vertices[0])
	e2 := prim.Vertices[2].Sub(prim.Vertices[0])
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < detEpsilon {
		return 0, 0, 0, false
	}

	invDet := 1 / det
	s := origin.Sub(prim.Vertices[0])
	u = s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return 0, 0, 0, false
	}

	q := s.Cross(e1)
	v = dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return 0, 0, 0, false
	}

	t = e2.Dot(q) * invDet
	return t, u, v, t > intersectEpsilon
}

// Analytic ray/sphere test for unit length ray directions. Returns the
// nearest hit distance beyond the epsilon threshold.
func intersectSphere(prim *scene.Primitive, origin, dir types.Vec3) (float32, bool) {
	oc := origin.Sub(prim.Center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - prim.Radius*prim.Radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math32.Sqrt(disc)
	t := -b - sq
	if t <= intersectEpsilon {
		t = -b + sq
	}
	return t, t > intersectEpsilon
}

// Intersect a ray against a single primitive.
func intersectPrimitive(prim *scene.Primitive, origin, dir types.Vec3) (t, u, v float32, hit bool) {
	if prim.Type == scene.SphereGeometry {
		t, hit = intersectSphere(prim, origin, dir)
		return t, 0, 0, hit
	}
	return intersectTriangle(prim, origin, dir)
}

// Calculate the geometric and interpolated shading normals at a hit point.
// Both normals are flipped to face against the incoming ray direction.
func surfaceNormals(prim *scene.Primitive, hitPoint, dir types.Vec3, u, v float32) (geometric, shading types.Vec3) {
	if prim.Type == scene.SphereGeometry {
		geometric = hitPoint.Sub(prim.Center).Normalize()
		shading = geometric
	} else {
		geometric = prim.Vertices[1].Sub(prim.Vertices[0]).Cross(prim.Vertices[2].Sub(prim.Vertices[0])).Normalize()
		shading = prim.Normals[0].Mul(1 - u - v).Add(prim.Normals[1].Mul(u)).Add(prim.Normals[2].Mul(v)).Normalize()
		if shading == (types.Vec3{}) {
			shading = geometric
		}
	}

	if geometric.Dot(dir) > 0 {
		geometric = geometric.Mul(-1)
	}
	if shading.Dot(geometric) < 0 {
		shading = shading.Mul(-1)
	}
	return geometric, shading
}

func inverseDir(dir types.Vec3) types.Vec3 {
	return types.XYZ(1/dir[0], 1/dir[1], 1/dir[2])
}
