package compiler

import (
	"fmt"
	"time"

	"github.com/achilleasa/wavetrace/asset/compiler/bvh"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
)

// Leafs are created once a partition holds this many primitives or less.
const minPrimitivesPerLeaf = 4

var logger = log.New("scene compiler")

// Build partitions primitives into a SAH BVH. The returned structure stores a
// copy of the primitives in leaf order. Build is deterministic for a given
// primitive order and fails with scene.ErrDegenerateScene when primitives is
// empty.
func Build(primitives []scene.Primitive) (*scene.AccelStructure, error) {
	if len(primitives) == 0 {
		return nil, scene.ErrDegenerateScene
	}

	start := time.Now()
	volList := make([]bvh.BoundedVolume, len(primitives))
	for index := range primitives {
		volList[index] = &primitives[index]
	}

	ordered := make([]scene.Primitive, 0, len(primitives))
	nodes, stats := bvh.Build(volList, minPrimitivesPerLeaf, func(leaf *scene.BvhNode, workList []bvh.BoundedVolume) {
		leaf.SetPrimitives(uint32(len(ordered)), uint32(len(workList)))
		for _, item := range workList {
			ordered = append(ordered, *(item.(*scene.Primitive)))
		}
	}, bvh.SurfaceAreaHeuristic)

	accel := &scene.AccelStructure{
		Nodes:      nodes,
		Primitives: ordered,
		MaxDepth:   stats.MaxDepth,
	}
	if len(ordered) != len(primitives) {
		return nil, fmt.Errorf("compiler: bvh partitioned %d out of %d primitives", len(ordered), len(primitives))
	}

	logger.Infof(
		"built BVH for %d primitives in %d ms (nodes: %d, leafs: %d, depth: %d)",
		len(primitives), time.Since(start).Nanoseconds()/1e6, len(nodes), stats.Leafs, stats.MaxDepth,
	)
	return accel, nil
}

// Compile builds the acceleration structure for a scene and caches it in
// sc.Accel. The scene primitives are replaced by their leaf-ordered copy so
// the scene can be persisted together with its BVH.
func Compile(sc *scene.Scene) error {
	logger.Noticef("compiling scene")
	accel, err := Build(sc.Primitives)
	if err != nil {
		return err
	}
	sc.Accel = accel
	sc.Primitives = accel.Primitives
	return nil
}
