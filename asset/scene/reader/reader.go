package reader

import (
	"errors"
	"fmt"

	"github.com/achilleasa/wavetrace/asset"
	"github.com/achilleasa/wavetrace/asset/scene"
)

// ErrUnsupportedFormat is returned for scene files with an unknown extension.
var ErrUnsupportedFormat = errors.New("reader: unsupported scene format")

// Vertical field of view (degrees) for scenes that do not define a camera.
const defaultFOV float32 = 70

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a local file or http/https URL. The reader is selected
// based on the file extension. Scenes without primitives are rejected with
// an error wrapping scene.ErrDegenerateScene.
func ReadScene(location string) (*scene.Scene, error) {
	res, err := asset.Open(location, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read scene from an open resource.
func Read(res *asset.Resource) (*scene.Scene, error) {
	var reader Reader
	switch res.Ext() {
	case ".obj":
		reader = newWavefrontReader()
	case ".ply":
		reader = newPlyReader()
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("%w %q (%s)", ErrUnsupportedFormat, res.Ext(), res.Path())
	}

	sc, err := reader.Read(res)
	if err != nil {
		return nil, err
	}
	if len(sc.Primitives) == 0 {
		return nil, fmt.Errorf("reader: %s: %w", res.Path(), scene.ErrDegenerateScene)
	}

	applyDefaults(sc)
	return sc, nil
}

// Fill in scene properties that the source file did not specify.
func applyDefaults(sc *scene.Scene) {
	if len(sc.Materials) == 0 {
		sc.Materials = []scene.Material{scene.DefaultMaterial}
	}
	if len(sc.Lights) == 0 {
		sc.Lights = []scene.Light{scene.DefaultSun}
	}
	if sc.Camera == nil {
		sc.Camera = scene.FramingCamera(sc.Bounds(), defaultFOV)
	}
}
