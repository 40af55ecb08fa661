package bvh

import (
	"slices"

	"github.com/achilleasa/polaris-bvh/types"
)

// Ranges with fewer references than this are sorted on the calling
// goroutine.
const sortThreshold = 4096

// referenceCompare orders references by the doubled center of their bounds
// along a single axis. Ties are broken by object, primitive index and
// primitive type so that the ordering is total.
type referenceCompare struct {
	dim       int
	unaligned *unalignedHeuristic
	space     *types.Transform
}

func (c *referenceCompare) primBounds(ref *Reference) types.BBox {
	if c.space == nil {
		return ref.Bounds
	}
	return c.unaligned.primBounds(ref, c.space)
}

func (c *referenceCompare) compare(ra, rb *Reference) int {
	ba, bb := c.primBounds(ra), c.primBounds(rb)
	ca := ba.Min[c.dim] + ba.Max[c.dim]
	cb := bb.Min[c.dim] + bb.Max[c.dim]

	switch {
	case ca < cb:
		return -1
	case ca > cb:
		return 1
	case ra.PrimObject < rb.PrimObject:
		return -1
	case ra.PrimObject > rb.PrimObject:
		return 1
	case ra.PrimIndex < rb.PrimIndex:
		return -1
	case ra.PrimIndex > rb.PrimIndex:
		return 1
	case ra.PrimType < rb.PrimType:
		return -1
	case ra.PrimType > rb.PrimType:
		return 1
	}
	return 0
}

func (c *referenceCompare) sortSequential(refs []Reference) {
	slices.SortFunc(refs, func(a, b Reference) int {
		return c.compare(&a, &b)
	})
}

// Sort refs[start:end] along dim. If space is not nil, reference bounds are
// evaluated inside that oriented space. Large ranges are sorted in parallel.
func sortReferences(refs []Reference, start, end, dim int, unaligned *unalignedHeuristic, space *types.Transform) {
	c := &referenceCompare{dim: dim, unaligned: unaligned, space: space}
	if end-start < sortThreshold {
		c.sortSequential(refs[start:end])
		return
	}

	pool := newTaskPool(0)
	c.sortParallel(pool, refs, start, end-1)
	pool.wait()
}

// Quicksort refs[start:end+1]. Each partitioning step hands the right part
// to the pool and keeps working on the left part. If the left part is
// empty the current goroutine continues with the right part instead.
func (c *referenceCompare) sortParallel(pool *taskPool, data []Reference, start, end int) {
	for haveWork := start < end; haveWork; {
		if end-start+1 < sortThreshold {
			c.sortSequential(data[start : end+1])
			return
		}

		// Median of three pivot selection.
		left, right := start, end
		center := (left + right) >> 1
		if c.compare(&data[left], &data[center]) > 0 {
			data[left], data[center] = data[center], data[left]
		}
		if c.compare(&data[left], &data[right]) > 0 {
			data[left], data[right] = data[right], data[left]
		}
		if c.compare(&data[center], &data[right]) > 0 {
			data[center], data[right] = data[right], data[center]
		}
		data[center], data[right-1] = data[right-1], data[center]
		median := data[right-1]

		for left <= right {
			for c.compare(&data[left], &median) < 0 {
				left++
			}
			for c.compare(&data[right], &median) > 0 {
				right--
			}
			if left <= right {
				data[left], data[right] = data[right], data[left]
				left++
				right--
			}
		}

		haveWork = false
		if left < end {
			if start < right {
				taskStart, taskEnd := left, end
				pool.push(func(int) {
					c.sortParallel(pool, data, taskStart, taskEnd)
				})
			} else {
				start = left
				haveWork = true
			}
		}
		if start < right {
			end = right
			haveWork = true
		}
	}
}
