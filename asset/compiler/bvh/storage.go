package bvh

import "github.com/achilleasa/polaris-bvh/types"

type spatialBin struct {
	bounds types.BBox
	enter  int
	exit   int
}

// buildStorage holds scratch buffers that are reused across the nodes
// built by a single worker.
type buildStorage struct {
	rightBounds   []types.BBox
	bins          [3][]spatialBin
	newReferences []Reference
}

// Get a right-bounds buffer with room for at least n entries.
func (s *buildStorage) rightBoundsBuffer(n int) []types.BBox {
	if cap(s.rightBounds) < n {
		s.rightBounds = make([]types.BBox, n)
	}
	return s.rightBounds[:n]
}

// Reset the spatial bins and return them.
func (s *buildStorage) resetBins(numBins int) *[3][]spatialBin {
	for axis := 0; axis < 3; axis++ {
		if cap(s.bins[axis]) < numBins {
			s.bins[axis] = make([]spatialBin, numBins)
		}
		s.bins[axis] = s.bins[axis][:numBins]
		for i := range s.bins[axis] {
			s.bins[axis][i] = spatialBin{bounds: types.EmptyBBox()}
		}
	}
	return &s.bins
}

// storagePool hands out one buildStorage per worker. Each slot is only
// ever touched by the worker owning it, so no locking is required.
type storagePool struct {
	slots []*buildStorage
}

// Create a pool for numWorkers pool workers plus the goroutine driving
// the build.
func newStoragePool(numWorkers int) *storagePool {
	return &storagePool{
		slots: make([]*buildStorage, numWorkers+1),
	}
}

// Get the storage for a worker index. Negative indices select the slot
// reserved for the driving goroutine.
func (p *storagePool) get(worker int) *buildStorage {
	if worker < 0 || worker >= len(p.slots)-1 {
		worker = len(p.slots) - 1
	}
	if p.slots[worker] == nil {
		p.slots[worker] = &buildStorage{}
	}
	return p.slots[worker]
}
