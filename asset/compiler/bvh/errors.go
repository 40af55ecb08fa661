package bvh

import "errors"

var (
	ErrCancelled          = errors.New("bvh: build cancelled")
	ErrNotPacked          = errors.New("bvh: no packed node data")
	ErrTopLevelRefit      = errors.New("bvh: top-level bvh cannot be refitted")
	ErrTopologyMismatch   = errors.New("bvh: primitive references do not match scene objects")
	ErrMissingInstanceBVH = errors.New("bvh: instanced geometry has no bvh")
)
