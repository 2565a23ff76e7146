package scene

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/achilleasa/wavetrace/types"
	"github.com/olekukonko/tablewriter"
)

// ErrDegenerateScene is returned when an acceleration structure is requested
// for a scene without any primitives.
var ErrDegenerateScene = errors.New("scene: degenerate scene (no primitives)")

// A loaded scene.
type Scene struct {
	Primitives  []Primitive
	Materials   []Material
	Lights      []Light
	Environment Environment

	Camera *Camera

	// A cached BVH. Populated by the compiler or when loading a compiled
	// scene; Primitives are then stored in leaf order.
	Accel *AccelStructure
}

// Material returns the material for a primitive, falling back to the
// default material for out of range references.
func (sc *Scene) Material(index int32) Material {
	if index < 0 || int(index) >= len(sc.Materials) {
		return DefaultMaterial
	}
	return sc.Materials[index]
}

// SunLight returns the index of the first directional light or -1.
func (sc *Scene) SunLight() int {
	for index, light := range sc.Lights {
		if light.Type == DirectionalLight {
			return index
		}
	}
	return -1
}

// Bounds returns the bounding box of all scene primitives.
func (sc *Scene) Bounds() [2]types.Vec3 {
	if sc.Accel != nil && len(sc.Accel.Nodes) != 0 {
		return sc.Accel.Bounds()
	}
	if len(sc.Primitives) == 0 {
		return [2]types.Vec3{}
	}
	bounds := sc.Primitives[0].BBox()
	for i := range sc.Primitives[1:] {
		bbox := sc.Primitives[i+1].BBox()
		bounds[0] = types.MinVec3(bounds[0], bbox[0])
		bounds[1] = types.MaxVec3(bounds[1], bbox[1])
	}
	return bounds
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var nodes []BvhNode
	var depth int
	if sc.Accel != nil {
		nodes = sc.Accel.Nodes
		depth = sc.Accel.MaxDepth
	}

	var triangles, spheres int
	for i := range sc.Primitives {
		if sc.Primitives[i].Type == SphereGeometry {
			spheres++
		} else {
			triangles++
		}
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", fmt.Sprint(len(sc.Primitives)), fmtSize(sc.Primitives)})
	table.Append([]string{"", "Triangles", fmt.Sprint(triangles), ""})
	table.Append([]string{"", "Spheres", fmt.Sprint(spheres), ""})
	table.Append([]string{"", "BVH nodes", fmt.Sprint(len(nodes)), fmtSize(nodes)})
	table.Append([]string{"", "BVH depth", fmt.Sprint(depth), ""})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Materials", "---", fmt.Sprint(len(sc.Materials)), fmtSize(sc.Materials)})
	table.Append([]string{"Lights", "---", fmt.Sprint(len(sc.Lights)), fmtSize(sc.Lights)})
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Primitives, nodes, sc.Materials, sc.Lights), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32
	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Kind() != reflect.Slice || v.Len() == 0 {
			continue
		}
		totalBytes += float32(int(v.Type().Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
