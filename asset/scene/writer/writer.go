package writer

import (
	"io"
	"os"

	"github.com/achilleasa/polaris-bvh/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write scene to binary format.
func WriteScene(sc *scene.Scene, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = newZipSceneWriter(f, filename).Write(sc)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Write scene in binary format to an arbitrary stream.
func WriteSceneTo(sc *scene.Scene, w io.Writer) error {
	return newZipSceneWriter(w, "stream").Write(sc)
}
