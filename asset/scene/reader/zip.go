package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/achilleasa/wavetrace/asset"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
)

// The zip entry that stores the gob-encoded scene.
const DataFile = "scene.bin"

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read a compiled scene (including its cached BVH) from a zip file.
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
		return nil, fmt.Errorf("zip reader: %s: %w", sceneRes.Path(), err)
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		if f.Name != DataFile {
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
			return nil, fmt.Errorf("zip reader: failed to load %s: %w", f.Name, err)
		}
	}

	if sc == nil {
		return nil, fmt.Errorf("zip reader: %s: missing %s entry", sceneRes.Path(), DataFile)
	}
	if sc.Accel != nil {
		if err = sc.Accel.Validate(); err != nil {
			return nil, fmt.Errorf("zip reader: %s: invalid cached bvh: %w", sceneRes.Path(), err)
		}
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return sc, nil
}
