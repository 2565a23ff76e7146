package writer

import (
	"archive/zip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/log"
)

// The zip entry that stores the gob-encoded scene. Must match the entry
// expected by the zip scene reader.
const dataFile = "scene.bin"

var logger = log.New("zip writer")

// Write a compiled scene (primitives, materials, lights, camera and the
// cached BVH) to filename.
func WriteScene(sc *scene.Scene, filename string) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("zip writer: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	logger.Noticef(`writing compiled scene to "%s"`, filename)
	return Write(sc, f)
}

// Write a compiled scene as a zip archive to w.
func Write(sc *scene.Scene, w io.Writer) error {
	if sc.Accel == nil {
		return fmt.Errorf("zip writer: scene has no acceleration structure; compile it first")
	}

	start := time.Now()
	zw := zip.NewWriter(w)
	entry, err := zw.Create(dataFile)
	if err != nil {
		return err
	}
	if err = gob.NewEncoder(entry).Encode(sc); err != nil {
		return fmt.Errorf("zip writer: could not encode scene: %w", err)
	}
	if err = zw.Close(); err != nil {
		return err
	}

	logger.Noticef("wrote scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}
