package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/achilleasa/wavetrace/asset/compiler"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/asset/scene/reader"
	"github.com/achilleasa/wavetrace/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		ext := strings.ToLower(filepath.Ext(sceneFile))
		if ext != ".obj" && ext != ".ply" {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := reader.ReadScene(sceneFile)
		if err != nil {
			return err
		}
		if err = compiler.Compile(sc); err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := strings.TrimSuffix(sceneFile, filepath.Ext(sceneFile)) + ".zip"
		if err = writer.WriteScene(sc, zipFile); err != nil {
			return err
		}
	}

	return nil
}

// Display scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	bounds := sc.Bounds()
	logger.Noticef(
		"scene information:\n%s\nBounds: [%.2f %.2f %.2f] - [%.2f %.2f %.2f]",
		sc.Stats(),
		bounds[0][0], bounds[0][1], bounds[0][2],
		bounds[1][0], bounds[1][1], bounds[1][2],
	)

	return nil
}

// Load a scene and build its acceleration structure if the scene file did
// not include a cached copy.
func loadScene(location string) (*scene.Scene, error) {
	sc, err := reader.ReadScene(location)
	if err != nil {
		return nil, err
	}

	if sc.Accel == nil {
		if err = compiler.Compile(sc); err != nil {
			return nil, fmt.Errorf("could not compile scene %s: %w", location, err)
		}
	}

	return sc, nil
}
