package device

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/achilleasa/wavetrace/types"
)

// AtomicAddFloat32 atomically adds delta to *addr.
func AtomicAddFloat32(addr *float32, delta float32) {
	bits := (*uint32)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint32(bits)
		updated := math.Float32bits(math.Float32frombits(old) + delta)
		if atomic.CompareAndSwapUint32(bits, old, updated) {
			return
		}
	}
}

// AtomicAddVec3 atomically adds each component of delta to the first three
// components of dst. Components are updated independently.
func AtomicAddVec3(dst *types.Vec4, delta types.Vec3) {
	for i := 0; i < 3; i++ {
		if delta[i] != 0 {
			AtomicAddFloat32(&dst[i], delta[i])
		}
	}
}
