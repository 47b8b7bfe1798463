package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateFreeCycles(t *testing.T) {
	bridge := NewBridge()

	pairs := []struct{ items, itemSize uint }{
		{1, 1},
		{1, 1024},
		{3, 7},
		{128, 64},
		{1024, 1},
		{5, 4096},
	}

	for range 4 {
		live := make([][]byte, 0, len(pairs))
		for _, p := range pairs {
			payload := bridge.Allocate(p.items, p.itemSize)
			require.NotNil(t, payload)
			require.Equal(t, int(p.items*p.itemSize), len(payload))

			// The payload must be writable over its full length.
			for i := range payload {
				payload[i] = byte(i)
			}

			live = append(live, payload)
		}

		require.Equal(t, len(pairs), bridge.Live())
		for _, payload := range live {
			bridge.Free(payload)
		}
		require.Zero(t, bridge.Live())
	}
}

func TestAllocateRejectsOverflow(t *testing.T) {
	bridge := NewBridge()

	require.Nil(t, bridge.Allocate(math.MaxUint, 2))
	require.Nil(t, bridge.Allocate(2, math.MaxUint))
	require.Nil(t, bridge.Allocate(math.MaxUint, math.MaxUint))
	// A product that only overflows once the header is added.
	require.Nil(t, bridge.Allocate(1, math.MaxUint))
	require.Zero(t, bridge.Live())
}

func TestAllocateRejectsZeroSize(t *testing.T) {
	bridge := NewBridge()

	require.Nil(t, bridge.Allocate(0, 8))
	require.Nil(t, bridge.Allocate(8, 0))
	require.Zero(t, bridge.Live())
}

func TestFreeUnknownPayloadPanics(t *testing.T) {
	bridge := NewBridge()

	foreign := make([]byte, 32)
	require.Panics(t, func() { bridge.Free(foreign[8:]) })
}

func TestDoubleFreePanics(t *testing.T) {
	bridge := NewBridge()

	payload := bridge.Allocate(4, 4)
	require.NotNil(t, payload)
	bridge.Free(payload)
	require.Panics(t, func() { bridge.Free(payload) })
	require.Zero(t, bridge.Live())
}

func TestBridgesAreIndependent(t *testing.T) {
	a := NewBridge()
	b := NewBridge()

	payload := a.Allocate(2, 8)
	require.NotNil(t, payload)
	require.Panics(t, func() { b.Free(payload) })
	a.Free(payload)
}
