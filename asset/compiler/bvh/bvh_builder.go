package bvh

import (
	"math"
	"sync"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
	"github.com/achilleasa/wavetrace/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the centroid bounds along an axis are less than this threshold.
	minSideLength float32 = 1e-6

	// Number of evenly spaced split planes evaluated per axis.
	splitCandidates = 32
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// The BoundedVolume interface is implemented by all primitives that can
// be partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Centroid() types.Vec3
}

// A callback that is called whenever the BVH builder creates a new leaf.
type LeafCallback func(leaf *scene.BvhNode, itemList []BoundedVolume)

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []BoundedVolume) (score float32)
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

// Build statistics.
type Stats struct {
	Items    int
	Nodes    int
	Leafs    int
	MaxDepth int
	// Leafs created because the depth limit was reached.
	ForcedLeafs int
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list
	nodes []scene.BvhNode

	// A callback invoked to set up BVH leafs.
	leafCb LeafCallback

	// The minimum number of items that are required for creating a leaf.
	minLeafItems int

	// Nodes at this depth are always turned into leafs.
	leafDepth int

	// The split scoring strategy to use.
	scoreStrategy ScoreStrategy

	stats Stats
}

// Construct a BVH from a set of bounded volumes.
//
// Split candidates are scored concurrently (one worker per axis) but each
// worker writes to its own result slot and the slots are compared in axis and
// candidate order, so the produced tree only depends on the input order.
//
// The minLeafItems param specifies the number of items at or below which the
// builder emits a leaf. Nodes are never placed deeper than scene.MaxBvhDepth-1.
// The root node is always at index 0.
func Build(workList []BoundedVolume, minLeafItems int, leafCb LeafCallback, scoreStrategy ScoreStrategy) ([]scene.BvhNode, Stats) {
	if minLeafItems < 1 {
		minLeafItems = 1
	}
	b := &builder{
		logger:        log.New("bvh builder"),
		nodes:         make([]scene.BvhNode, 0, 2*len(workList)),
		leafCb:        leafCb,
		minLeafItems:  minLeafItems,
		leafDepth:     scene.MaxBvhDepth - 1,
		scoreStrategy: scoreStrategy,
		stats: Stats{
			Items: len(workList),
		},
	}

	if len(workList) == 0 {
		return b.nodes, b.stats
	}

	start := time.Now()
	b.partition(workList, 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d (forced: %d)",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.MaxDepth, b.stats.Nodes, b.stats.Leafs, b.stats.ForcedLeafs,
	)
	return b.nodes, b.stats
}

// Partition worklist and return node index.
func (b *builder) partition(workList []BoundedVolume, depth int) uint32 {
	if depth > b.stats.MaxDepth {
		b.stats.MaxDepth = depth
	}

	node := scene.BvhNode{}
	node.SetBBox(bounds(workList, BoundedVolume.BBox))

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.minLeafItems {
		return b.createLeaf(&node, workList)
	}
	if depth >= b.leafDepth {
		b.stats.ForcedLeafs++
		return b.createLeaf(&node, workList)
	}

	bestSplit := b.findSplit(workList)

	// If we can't find a split that improves the current node score create a leaf
	if bestSplit == nil {
		return b.createLeaf(&node, workList)
	}

	// split work list into two sets
	leftWorkList := make([]BoundedVolume, 0, bestSplit.leftCount)
	rightWorkList := make([]BoundedVolume, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.Centroid()[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	// Add node to list
	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.Nodes++

	// Partition children and update node indices
	leftNodeIndex := b.partition(leftWorkList, depth+1)
	rightNodeIndex := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].SetChildNodes(leftNodeIndex, rightNodeIndex)

	return uint32(nodeIndex)
}

// Score split candidates along each axis and return the best one or nil if
// no split improves on the unsplit partition score.
func (b *builder) findSplit(workList []BoundedVolume) *splitScore {
	centroidBounds := bounds(workList, func(item BoundedVolume) [2]types.Vec3 {
		c := item.Centroid()
		return [2]types.Vec3{c, c}
	})
	side := centroidBounds[1].Sub(centroidBounds[0])

	var results [3][]splitScore
	var wg sync.WaitGroup
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if all centroids are (almost) coplanar
		if side[axis] < minSideLength {
			continue
		}

		wg.Add(1)
		go func(axis Axis) {
			defer wg.Done()
			step := side[axis] / float32(splitCandidates+1)
			slot := make([]splitScore, splitCandidates)
			for i := range slot {
				splitPoint := centroidBounds[0][axis] + float32(i+1)*step
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				slot[i] = splitScore{
					axis:       axis,
					splitPoint: splitPoint,
					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}
			results[axis] = slot
		}(axis)
	}
	wg.Wait()

	bestScore := b.scoreStrategy.ScorePartition(workList)
	var bestSplit *splitScore
	for axis := range results {
		for i := range results[axis] {
			if candidate := &results[axis][i]; candidate.score < bestScore {
				bestScore = candidate.score
				bestSplit = candidate
			}
		}
	}
	return bestSplit
}

// Setup the given node item as a leaf node containing all items in the work list.
// Returns the index to the node in the bvh node array.
func (b *builder) createLeaf(node *scene.BvhNode, workList []BoundedVolume) uint32 {
	b.leafCb(node, workList)

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)
	b.stats.Leafs++

	return uint32(nodeIndex)
}

func bounds(workList []BoundedVolume, boxFn func(BoundedVolume) [2]types.Vec3) [2]types.Vec3 {
	min := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, item := range workList {
		itemBBox := boxFn(item)
		min = types.MinVec3(min, itemBBox[0])
		max = types.MaxVec3(max, itemBBox[1])
	}
	return [2]types.Vec3{min, max}
}

func halfArea(min, max types.Vec3) float32 {
	side := max.Sub(min)
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	rmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	rmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for _, item := range workList {
		itemBBox := item.BBox()
		if item.Centroid()[axis] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, itemBBox[0])
			lmax = types.MaxVec3(lmax, itemBBox[1])
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, itemBBox[0])
			rmax = types.MaxVec3(rmax, itemBBox[1])
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*halfArea(lmin, lmax) + float32(rightCount)*halfArea(rmin, rmax)
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	box := bounds(workList, BoundedVolume.BBox)
	return float32(len(workList)) * halfArea(box[0], box[1])
}
