package geometry

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// LeafSize is the largest triangle count stored in a single leaf
const LeafSize = 4

// BVHNode is one node of a flat, pre-order bounding volume hierarchy.
// Leaves store (first triangle, triangle count) in Data0/Data1;
// internal nodes store (left child, right child) node indices.
type BVHNode struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	Data0 uint32
	Data1 uint32
	Leaf  bool
}

// Bounds returns the node box
func (n BVHNode) Bounds() core.AABB {
	return core.NewAABB(n.Min, n.Max)
}

// triBounds caches the box and centroid of one triangle
type triBounds struct {
	box      core.AABB
	centroid mgl32.Vec3
}

type bvhBuilder struct {
	bounds []triBounds
	order  []uint32 // Triangle ids, permuted in place by partitioning
	nodes  []BVHNode
}

// BuildBVH builds a hierarchy over a triangle soup and returns the nodes together with
// the index array reordered so every leaf covers a contiguous triangle range.
// Vertices are not moved. The input slice is not modified.
func BuildBVH(vertices []mgl32.Vec3, indices []uint32) ([]BVHNode, []uint32) {
	triCount := len(indices) / 3
	if triCount == 0 {
		return nil, nil
	}

	b := &bvhBuilder{
		bounds: make([]triBounds, triCount),
		order:  make([]uint32, triCount),
		nodes:  make([]BVHNode, 0, 2*triCount/LeafSize+1),
	}
	for i := 0; i < triCount; i++ {
		v0 := vertices[indices[i*3+0]]
		v1 := vertices[indices[i*3+1]]
		v2 := vertices[indices[i*3+2]]
		box := core.NewAABBFromPoints(v0, v1, v2)
		b.bounds[i] = triBounds{box: box, centroid: box.Center()}
		b.order[i] = uint32(i)
	}

	b.build(0, uint32(triCount))

	reordered := make([]uint32, triCount*3)
	for newTri, oldTri := range b.order {
		copy(reordered[newTri*3:newTri*3+3], indices[oldTri*3:oldTri*3+3])
	}
	return b.nodes, reordered
}

// build emits the node for [start, start+count) and returns its index.
// The node is appended before its children, giving pre-order layout with root at 0.
func (b *bvhBuilder) build(start, count uint32) uint32 {
	nodeIndex := uint32(len(b.nodes))
	b.nodes = append(b.nodes, BVHNode{})

	box := core.EmptyAABB()
	centroids := core.EmptyAABB()
	for _, tri := range b.order[start : start+count] {
		box = box.Union(b.bounds[tri].box)
		centroids = centroids.Extend(b.bounds[tri].centroid)
	}

	if count <= LeafSize {
		b.nodes[nodeIndex] = BVHNode{Min: box.Min, Max: box.Max, Data0: start, Data1: count, Leaf: true}
		return nodeIndex
	}

	axis := centroids.WidestAxis()
	mid := start + count/2
	selectNth(b.order[start:start+count], int(mid-start), func(tri uint32) float32 {
		return b.bounds[tri].centroid[axis]
	})

	leftCount := mid - start
	rightCount := count - leftCount
	if leftCount == 0 || rightCount == 0 {
		// All centroids equal on the axis: split by position
		leftCount = count / 2
		rightCount = count - leftCount
		mid = start + leftCount
	}

	left := b.build(start, leftCount)
	right := b.build(mid, rightCount)

	b.nodes[nodeIndex] = BVHNode{Min: box.Min, Max: box.Max, Data0: left, Data1: right}
	return nodeIndex
}

// selectNth partially orders ids so ids[k] holds the element a full sort would put
// there, with every element before it <= and every element after it >= by key.
// Deterministic: median-of-three pivots, no randomness.
func selectNth(ids []uint32, k int, key func(uint32) float32) {
	lo, hi := 0, len(ids)-1
	for hi > lo {
		mid := lo + (hi-lo)/2
		if key(ids[mid]) < key(ids[lo]) {
			ids[mid], ids[lo] = ids[lo], ids[mid]
		}
		if key(ids[hi]) < key(ids[lo]) {
			ids[hi], ids[lo] = ids[lo], ids[hi]
		}
		if key(ids[hi]) < key(ids[mid]) {
			ids[hi], ids[mid] = ids[mid], ids[hi]
		}
		pivot := key(ids[mid])

		i, j := lo, hi
		for i <= j {
			for key(ids[i]) < pivot {
				i++
			}
			for key(ids[j]) > pivot {
				j--
			}
			if i <= j {
				ids[i], ids[j] = ids[j], ids[i]
				i++
				j--
			}
		}

		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return
		}
	}
}

// BVHStats summarizes the shape of a built hierarchy
type BVHStats struct {
	TotalNodes int
	LeafNodes  int
	MaxDepth   int
	AvgDepth   float64
	Triangles  int
}

// CollectBVHStats walks the tree from the root
func CollectBVHStats(nodes []BVHNode) BVHStats {
	stats := BVHStats{}
	if len(nodes) == 0 {
		return stats
	}
	collectStats(nodes, 0, 0, &stats)
	if stats.LeafNodes > 0 {
		stats.AvgDepth /= float64(stats.LeafNodes)
	}
	return stats
}

func collectStats(nodes []BVHNode, index uint32, depth int, stats *BVHStats) {
	node := nodes[index]
	stats.TotalNodes++
	stats.MaxDepth = max(stats.MaxDepth, depth)

	if node.Leaf {
		stats.LeafNodes++
		stats.Triangles += int(node.Data1)
		stats.AvgDepth += float64(depth)
		return
	}
	collectStats(nodes, node.Data0, depth+1, stats)
	collectStats(nodes, node.Data1, depth+1, stats)
}

// intersectBVH returns the closest non-negative hit distance against the triangles
// of a mesh in its local space, or -1.
func intersectBVH(nodes []BVHNode, vertices []mgl32.Vec3, indices []uint32, ray core.Ray) float32 {
	if len(nodes) == 0 {
		return -1
	}

	closest := float32(-1)
	tMax := float32(1e30)
	stack := make([]uint32, 0, 64)
	stack = append(stack, 0)

	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := nodes[index]
		if !node.Bounds().Hit(ray, 0, tMax) {
			continue
		}
		if !node.Leaf {
			stack = append(stack, node.Data1, node.Data0)
			continue
		}

		for tri := node.Data0; tri < node.Data0+node.Data1; tri++ {
			t := intersectTriangle(ray,
				vertices[indices[tri*3+0]],
				vertices[indices[tri*3+1]],
				vertices[indices[tri*3+2]])
			if t >= MinHitDistance && t < tMax {
				tMax = t
				closest = t
			}
		}
	}
	return closest
}
