package reader

import (
	"fmt"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/compiler/input"
	"github.com/achilleasa/polaris-bvh/asset/scene"
)

// The Reader interface is implemented by compiled scene readers.
type Reader interface {
	// Read compiled scene from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// The InputReader interface is implemented by scene description readers.
type InputReader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*input.Scene, error)
}

// Read a scene definition that can be passed to the scene compiler.
func ReadInput(filename string) (*input.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	// Select reader based on file extension
	var reader InputReader
	switch res.Ext() {
	case ".obj":
		reader = newWavefrontReader()
	default:
		return nil, fmt.Errorf("readInput: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}

// Read compiled scene from file.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var reader Reader
	switch res.Ext() {
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}
