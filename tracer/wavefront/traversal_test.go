package wavefront

import (
	"math/rand"
	"testing"

	"github.com/achilleasa/wavetrace/asset/compiler"
	"github.com/achilleasa/wavetrace/asset/scene"
	"github.com/achilleasa/wavetrace/tracer/device"
	"github.com/achilleasa/wavetrace/tracer/queue"
	"github.com/achilleasa/wavetrace/types"
	"github.com/chewxy/math32"
)

func randomVec(rnd *rand.Rand, scale float32) types.Vec3 {
	return types.XYZ(
		(rnd.Float32()*2-1)*scale,
		(rnd.Float32()*2-1)*scale,
		(rnd.Float32()*2-1)*scale,
	)
}

func randomScene(rnd *rand.Rand, count int) *scene.Scene {
	sc := &scene.Scene{
		Materials: []scene.Material{scene.DefaultMaterial},
	}
	for i := 0; i < count; i++ {
		center := randomVec(rnd, 10)
		if i%3 == 0 {
			sc.Primitives = append(sc.Primitives, scene.NewSphere(center, 0.2+rnd.Float32(), 0))
			continue
		}
		sc.Primitives = append(sc.Primitives, scene.NewTriangle(
			center.Add(randomVec(rnd, 1.5)),
			center.Add(randomVec(rnd, 1.5)),
			center.Add(randomVec(rnd, 1.5)),
			0,
		))
	}
	return sc
}

func uploadTestScene(t *testing.T, dev *device.Device, sc *scene.Scene) *SceneHandle {
	t.Helper()
	accel, err := compiler.Build(sc.Primitives)
	if err != nil {
		t.Fatal(err)
	}
	h, err := Upload(dev, sc, accel)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

// Test every primitive and keep the closest hit; ties go to the smaller index.
func linearClosestHit(prims []scene.Primitive, ray queue.Ray) (int32, float32) {
	closest := ray.Distance
	hitIndex := int32(-1)
	for index := range prims {
		t, _, _, hit := intersectPrimitive(&prims[index], ray.Origin, ray.Direction)
		if hit && (t < closest || (t == closest && hitIndex < 0)) {
			closest, hitIndex = t, int32(index)
		}
	}
	return hitIndex, closest
}

func TestTraversalMatchesLinearScan(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	dev := device.New(device.Config{Workers: 2})
	defer dev.Close()

	sc := randomScene(rnd, 300)
	h := uploadTestScene(t, dev, sc)
	prims := h.Primitives.Data()

	hits := 0
	for i := 0; i < 2000; i++ {
		var origin types.Vec3
		var dir types.Vec3
		if i%2 == 0 {
			// aim at a random primitive from outside the scene
			origin = randomVec(rnd, 30)
			target := prims[rnd.Intn(len(prims))].Centroid()
			dir = target.Sub(origin).Normalize()
		} else {
			origin = randomVec(rnd, 12)
			dir = randomVec(rnd, 1).Normalize()
		}
		if dir == (types.Vec3{}) {
			continue
		}

		ray := queue.Ray{
			Origin:    origin,
			Direction: dir,
			Distance:  math32.MaxFloat32,
		}
		expIndex, expDist := linearClosestHit(prims, ray)

		h.closestHit(&ray)
		if ray.PrimitiveIndex != expIndex {
			t.Fatalf("[ray %d] expected hit primitive %d; got %d", i, expIndex, ray.PrimitiveIndex)
		}
		if expIndex < 0 {
			continue
		}
		hits++
		if ray.Distance != expDist {
			t.Fatalf("[ray %d] expected hit distance %f; got %f", i, expDist, ray.Distance)
		}
		if ray.GeometryType != prims[expIndex].Type {
			t.Fatalf("[ray %d] expected geometry type %s; got %s", i, prims[expIndex].Type, ray.GeometryType)
		}
	}

	if hits == 0 {
		t.Fatal("expected some rays to hit the scene")
	}
}

func TestTraversalTieBreak(t *testing.T) {
	dev := device.New(device.Config{Workers: 1})
	defer dev.Close()

	tri := scene.NewTriangle(types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0), 0)
	sc := &scene.Scene{Primitives: []scene.Primitive{tri, tri, tri}}
	h := uploadTestScene(t, dev, sc)

	ray := queue.Ray{
		Origin:    types.XYZ(0, 0, 5),
		Direction: types.XYZ(0, 0, -1),
		Distance:  math32.MaxFloat32,
	}
	h.closestHit(&ray)
	if ray.PrimitiveIndex != 0 {
		t.Fatalf("expected the primitive with the smallest index to win the tie; got %d", ray.PrimitiveIndex)
	}
	if math32.Abs(ray.Distance-5) > 1e-4 {
		t.Fatalf("expected hit distance 5; got %f", ray.Distance)
	}
}

func TestTraversalMiss(t *testing.T) {
	dev := device.New(device.Config{Workers: 1})
	defer dev.Close()

	sc := &scene.Scene{Primitives: []scene.Primitive{scene.NewSphere(types.XYZ(0, 0, 0), 1, 0)}}
	h := uploadTestScene(t, dev, sc)

	specs := []struct {
		origin, dir types.Vec3
		maxDist     float32
		expHit      bool
	}{
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), math32.MaxFloat32, true},
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, 1), math32.MaxFloat32, false},
		{types.XYZ(0, 3, 5), types.XYZ(0, 0, -1), math32.MaxFloat32, false},
		// hit is beyond the max distance
		{types.XYZ(0, 0, 5), types.XYZ(0, 0, -1), 2, false},
		// origin inside the sphere hits the far side
		{types.XYZ(0, 0, 0), types.XYZ(1, 0, 0), math32.MaxFloat32, true},
	}

	for index, spec := range specs {
		ray := queue.Ray{Origin: spec.origin, Direction: spec.dir, Distance: spec.maxDist}
		h.closestHit(&ray)
		if ray.Hit() != spec.expHit {
			t.Fatalf("[spec %d] expected hit: %t; got %t", index, spec.expHit, ray.Hit())
		}
	}
}

func TestDegenerateTriangleIsMiss(t *testing.T) {
	prim := scene.NewTriangle(types.XYZ(0, 0, 0), types.XYZ(1, 1, 1), types.XYZ(2, 2, 2), 0)
	if _, _, _, hit := intersectTriangle(&prim, types.XYZ(1, 1, 5), types.XYZ(0, 0, -1)); hit {
		t.Fatal("expected degenerate triangle to report a miss")
	}
}

func TestOccludedIsIdempotent(t *testing.T) {
	dev := device.New(device.Config{Workers: 1})
	defer dev.Close()

	sc := &scene.Scene{Primitives: []scene.Primitive{
		scene.NewTriangle(types.XYZ(-1, -1, 0), types.XYZ(1, -1, 0), types.XYZ(0, 1, 0), 0),
	}}
	h := uploadTestScene(t, dev, sc)

	specs := []struct {
		ray         queue.ShadowRay
		expOccluded bool
	}{
		{queue.ShadowRay{Origin: types.XYZ(0, 0, 5), Direction: types.XYZ(0, 0, -1), Distance: 10}, true},
		{queue.ShadowRay{Origin: types.XYZ(0, 0, 5), Direction: types.XYZ(0, 0, -1), Distance: 4}, false},
		{queue.ShadowRay{Origin: types.XYZ(0, 0, 5), Direction: types.XYZ(0, 0, 1), Distance: math32.MaxFloat32}, false},
	}

	for index, spec := range specs {
		first := Occluded(h, &spec.ray)
		second := Occluded(h, &spec.ray)
		if first != second {
			t.Fatalf("[spec %d] expected repeated occlusion tests to agree; got %t and %t", index, first, second)
		}
		if first != spec.expOccluded {
			t.Fatalf("[spec %d] expected occluded: %t; got %t", index, spec.expOccluded, first)
		}
	}
}

func TestUploadFailsOnMemoryBudget(t *testing.T) {
	dev := device.New(device.Config{Workers: 1, MemoryBudget: 64})
	defer dev.Close()

	sc := randomScene(rand.New(rand.NewSource(1)), 10)
	accel, err := compiler.Build(sc.Primitives)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Upload(dev, sc, accel)
	if _, ok := err.(*device.MemoryError); !ok {
		t.Fatalf("expected a *device.MemoryError; got %v", err)
	}
	if dev.Allocated() != 0 {
		t.Fatalf("expected partial allocations to be released; %d bytes still allocated", dev.Allocated())
	}
}

func TestUploadRejectsEmptyStructure(t *testing.T) {
	dev := device.New(device.Config{Workers: 1})
	defer dev.Close()

	if _, err := Upload(dev, &scene.Scene{}, nil); err != scene.ErrDegenerateScene {
		t.Fatalf("expected ErrDegenerateScene; got %v", err)
	}
}
