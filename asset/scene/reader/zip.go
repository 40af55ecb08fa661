package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/polaris-bvh/asset"
	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/asset/scene/writer"
	"github.com/achilleasa/polaris-bvh/log"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read scene definition from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`parsing compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		switch f.Name {
		case writer.DataFile:
		case writer.StatsFile:
			continue
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		sc = &scene.Scene{}
		err = gob.NewDecoder(rc).Decode(sc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("zipSceneReader: failed to load %s: %s", f.Name, err.Error())
		}
	}

	if sc == nil {
		return nil, fmt.Errorf("zipSceneReader: missing %s", writer.DataFile)
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return sc, nil
}
