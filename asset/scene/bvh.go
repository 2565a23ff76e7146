package scene

import (
	"fmt"

	"github.com/achilleasa/wavetrace/types"
)

// The maximum depth of a BVH tree. Traversal kernels use a fixed stack of
// this size so the builder never emits deeper trees.
const MaxBvhDepth = 32

// Bvh nodes are comprised of two Vec3 and two multipurpose int32 parameters
// whose value depends on the node type:
//
// - For internal nodes they are both >0 and point to the L/R child nodes
// - For leafs:
//   - LData is <= 0 and holds the negated index of the first primitive
//   - RData is >0 and contains the count of leaf primitives
//
// The root node is always stored at index 0.
type BvhNode struct {
	Min   types.Vec3
	LData int32

	Max   types.Vec3
	RData int32
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// BBox returns the node bounding box.
func (n *BvhNode) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Set left and right child node indices.
func (n *BvhNode) SetChildNodes(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Get left and right child node indices.
func (n *BvhNode) ChildNodes() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// Set primitive index and count.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count uint32) {
	n.LData = -int32(firstPrimIndex)
	n.RData = int32(count)
}

// Get primitive index and count.
func (n *BvhNode) Primitives() (firstPrimIndex, count uint32) {
	return uint32(-n.LData), uint32(n.RData)
}

// IsLeaf returns true if this node references primitives.
func (n *BvhNode) IsLeaf() bool {
	return n.LData <= 0
}

// An AccelStructure is a flattened BVH. Primitives are stored in leaf order
// so each leaf references a contiguous primitive range.
type AccelStructure struct {
	Nodes      []BvhNode
	Primitives []Primitive
	MaxDepth   int
}

// Bounds returns the root bounding box.
func (a *AccelStructure) Bounds() [2]types.Vec3 {
	if len(a.Nodes) == 0 {
		return [2]types.Vec3{}
	}
	return a.Nodes[0].BBox()
}

// Validate checks the structural invariants of the hierarchy: child and
// primitive references are in range, each node box contains its children
// (or primitives) and depth does not exceed MaxBvhDepth.
func (a *AccelStructure) Validate() error {
	if len(a.Nodes) == 0 {
		return ErrDegenerateScene
	}
	if a.MaxDepth >= MaxBvhDepth {
		return fmt.Errorf("bvh: depth %d exceeds max depth %d", a.MaxDepth, MaxBvhDepth)
	}
	return a.validateNode(0, 0)
}

func (a *AccelStructure) validateNode(index uint32, depth int) error {
	if int(index) >= len(a.Nodes) {
		return fmt.Errorf("bvh: node index %d out of range", index)
	}
	if depth >= MaxBvhDepth {
		return fmt.Errorf("bvh: node %d exceeds max depth %d", index, MaxBvhDepth)
	}

	node := &a.Nodes[index]
	if node.IsLeaf() {
		first, count := node.Primitives()
		if count == 0 || int(first+count) > len(a.Primitives) {
			return fmt.Errorf("bvh: leaf %d references invalid primitive range [%d, %d)", index, first, first+count)
		}
		for i := first; i < first+count; i++ {
			if !contains(node.BBox(), a.Primitives[i].BBox()) {
				return fmt.Errorf("bvh: leaf %d box does not contain primitive %d", index, i)
			}
		}
		return nil
	}

	left, right := node.ChildNodes()
	for _, child := range []uint32{left, right} {
		if child == 0 || int(child) >= len(a.Nodes) {
			return fmt.Errorf("bvh: node %d references invalid child %d", index, child)
		}
		if !contains(node.BBox(), a.Nodes[child].BBox()) {
			return fmt.Errorf("bvh: node %d box does not contain child %d", index, child)
		}
		if err := a.validateNode(child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func contains(outer, inner [2]types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if inner[0][axis] < outer[0][axis] || inner[1][axis] > outer[1][axis] {
			return false
		}
	}
	return true
}
