package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"time"

	"github.com/achilleasa/polaris-bvh/asset/scene"
	"github.com/achilleasa/polaris-bvh/log"
)

const (
	// Archive entry holding the gob-encoded scene.
	DataFile = "scene.bin"

	// Archive entry holding a human readable summary of the BVH.
	StatsFile = "stats.txt"
)

type zipSceneWriter struct {
	logger log.Logger
	target io.Writer
	name   string
}

// Create a new zip scene writer
func newZipSceneWriter(target io.Writer, name string) *zipSceneWriter {
	return &zipSceneWriter{
		logger: log.New("zip writer"),
		target: target,
		name:   name,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef("writing compressed scene to %s", w.name)
	start := time.Now()

	zw := zip.NewWriter(w.target)

	// Write scene data
	cw, err := zw.Create(DataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(cw).Encode(sc); err != nil {
		return err
	}

	sw, err := zw.Create(StatsFile)
	if err != nil {
		return err
	}
	if _, err = io.WriteString(sw, sc.BVHStats.Table()); err != nil {
		return err
	}

	if err = zw.Close(); err != nil {
		return err
	}

	w.logger.Infof("compressed scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return nil
}
