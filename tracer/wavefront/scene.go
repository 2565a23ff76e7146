package wavefront

import (
	"fmt"

	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/types"
)

// The device-side material layout.
type deviceMaterial struct {
	Type     scene.MaterialType
	Albedo   types.Vec3
	Emission types.Vec3
}

// A SceneHandle holds the read-only device buffers for an uploaded scene.
// The buffers are shared by every stage of every frame until Release is
// called.
type SceneHandle struct {
	Nodes      *device.Buffer[scene.BvhNode]
	Primitives *device.Buffer[scene.Primitive]
	Materials  *device.Buffer[deviceMaterial]
	Lights     *device.Buffer[scene.Light]

	Environment scene.Environment

	// Index of the light that drives the sun disk or -1.
	SunLight int

	MaxDepth int
}

// Upload the acceleration structure together with the scene materials and
// lights into device buffers. Allocation failures are reported as
// *device.MemoryError values and any partially allocated buffers are
// released.
func Upload(dev *device.Device, sc *scene.Scene, accel *scene.AccelStructure) (*SceneHandle, error) {
	if accel == nil || len(accel.Nodes) == 0 || len(accel.Primitives) == 0 {
		return nil, scene.ErrDegenerateScene
	}
	if accel.MaxDepth >= scene.MaxBvhDepth {
		return nil, fmt.Errorf("wavefront: bvh depth %d exceeds the traversal stack size %d", accel.MaxDepth, scene.MaxBvhDepth)
	}

	materials := make([]deviceMaterial, 0, len(sc.Materials)+1)
	for _, mat := range sc.Materials {
		materials = append(materials, deviceMaterial{Type: mat.Type, Albedo: mat.Albedo, Emission: mat.Emission})
	}
	if len(materials) == 0 {
		materials = append(materials, deviceMaterial{Type: scene.DefaultMaterial.Type, Albedo: scene.DefaultMaterial.Albedo})
	}

	var err error
	h := &SceneHandle{
		Environment: sc.Environment,
		SunLight:    sc.SunLight(),
		MaxDepth:    accel.MaxDepth,
	}
	if h.Nodes, err = device.UploadBuffer(dev, "bvhNodes", accel.Nodes); err != nil {
		h.Release()
		return nil, err
	}
	if h.Primitives, err = device.UploadBuffer(dev, "primitives", accel.Primitives); err != nil {
		h.Release()
		return nil, err
	}
	if h.Materials, err = device.UploadBuffer(dev, "materials", materials); err != nil {
		h.Release()
		return nil, err
	}
	if h.Lights, err = device.UploadBuffer(dev, "lights", sc.Lights); err != nil {
		h.Release()
		return nil, err
	}

	return h, nil
}

// Release the device buffers held by this handle.
func (h *SceneHandle) Release() {
	if h.Nodes != nil {
		h.Nodes.Release()
	}
	if h.Primitives != nil {
		h.Primitives.Release()
	}
	if h.Materials != nil {
		h.Materials.Release()
	}
	if h.Lights != nil {
		h.Lights.Release()
	}
}

// Look up the material for a primitive.
func (h *SceneHandle) material(prim *scene.Primitive) *deviceMaterial {
	materials := h.Materials.Data()
	index := int(prim.MaterialIndex)
	if index < 0 || index >= len(materials) {
		index = 0
	}
	return &materials[index]
}

// Return the direction towards the sun after applying offset.
func (h *SceneHandle) sunDirection(offset types.Vec2) (types.Vec3, bool) {
	if h.SunLight < 0 {
		return types.Vec3{}, false
	}
	return h.Lights.Data()[h.SunLight].SunDirection(offset), true
}
