package wavefront

import (
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/tracer/queue"
	"github.com/achilleasa/wavetrace/types"
)

type stackEntry struct {
	node  uint32
	tNear float32
}

// Find the closest hit along the ray within [epsilon, ray.Distance] and
// store it in place. Rays that do not hit anything get their PrimitiveIndex
// set to queue.MissSentinel. When two primitives are hit at the same
// distance, the one with the smaller index wins.
func (h *SceneHandle) closestHit(ray *queue.Ray) {
	nodes := h.Nodes.Data()
	prims := h.Primitives.Data()

	ray.PrimitiveIndex = queue.MissSentinel
	closest := ray.Distance
	hitIndex := int32(-1)
	var hitU, hitV float32

	invDir := inverseDir(ray.Direction)
	tNear, ok := intersectBox(nodes[0].Min, nodes[0].Max, ray.Origin, invDir, closest)
	if !ok {
		return
	}

	var stack [scene.MaxBvhDepth]stackEntry
	stack[0] = stackEntry{node: 0, tNear: tNear}
	sp := 1
	for sp > 0 {
		sp--
		entry := stack[sp]
		if entry.tNear > closest {
			continue
		}

		node := &nodes[entry.node]
		if node.IsLeaf() {
			first, count := node.Primitives()
			for primIndex := int32(first); primIndex < int32(first+count); primIndex++ {
				t, u, v, hit := intersectPrimitive(&prims[primIndex], ray.Origin, ray.Direction)
				if !hit || t > closest {
					continue
				}
				if t < closest || hitIndex < 0 || primIndex < hitIndex {
					closest, hitIndex, hitU, hitV = t, primIndex, u, v
				}
			}
			continue
		}

		left, right := node.ChildNodes()
		tLeft, hitLeft := intersectBox(nodes[left].Min, nodes[left].Max, ray.Origin, invDir, closest)
		tRight, hitRight := intersectBox(nodes[right].Min, nodes[right].Max, ray.Origin, invDir, closest)
		switch {
		case hitLeft && hitRight:
			// Push the far child first so the near child is popped next
			if tRight < tLeft {
				stack[sp] = stackEntry{left, tLeft}
				stack[sp+1] = stackEntry{right, tRight}
			} else {
				stack[sp] = stackEntry{right, tRight}
				stack[sp+1] = stackEntry{left, tLeft}
			}
			sp += 2
		case hitLeft:
			stack[sp] = stackEntry{left, tLeft}
			sp++
		case hitRight:
			stack[sp] = stackEntry{right, tRight}
			sp++
		}
	}

	if hitIndex < 0 {
		return
	}
	ray.Distance = closest
	ray.PrimitiveIndex = hitIndex
	ray.GeometryType = prims[hitIndex].Type
	ray.U, ray.V = hitU, hitV
}

// Report whether any primitive is hit within (epsilon, maxDist). Traversal
// exits on the first hit.
func (h *SceneHandle) anyHit(origin, dir types.Vec3, maxDist float32) bool {
	nodes := h.Nodes.Data()
	prims := h.Primitives.Data()

	invDir := inverseDir(dir)
	if _, ok := intersectBox(nodes[0].Min, nodes[0].Max, origin, invDir, maxDist); !ok {
		return false
	}

	var stack [scene.MaxBvhDepth]uint32
	sp := 1
	for sp > 0 {
		sp--
		node := &nodes[stack[sp]]
		if node.IsLeaf() {
			first, count := node.Primitives()
			for primIndex := first; primIndex < first+count; primIndex++ {
				if t, _, _, hit := intersectPrimitive(&prims[primIndex], origin, dir); hit && t < maxDist {
					return true
				}
			}
			continue
		}

		left, right := node.ChildNodes()
		if _, ok := intersectBox(nodes[left].Min, nodes[left].Max, origin, invDir, maxDist); ok {
			stack[sp] = left
			sp++
		}
		if _, ok := intersectBox(nodes[right].Min, nodes[right].Max, origin, invDir, maxDist); ok {
			stack[sp] = right
			sp++
		}
	}
	return false
}

// Occluded reports whether the shadow ray is blocked by scene geometry
// before reaching its light. The test does not modify the ray or the scene.
func Occluded(h *SceneHandle, ray *queue.ShadowRay) bool {
	return h.anyHit(ray.Origin, ray.Direction, ray.Distance)
}

// Intersect reports the closest hit for ray in place.
func Intersect(h *SceneHandle, ray *queue.Ray) {
	h.closestHit(ray)
}
