package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckEndianness(t *testing.T) {
	result := CheckEndianness()
	require.True(t, result == binary.LittleEndian || result == binary.BigEndian)

	// The detection is stable.
	require.Equal(t, result, CheckEndianness())
}

func TestGetNativeEngine(t *testing.T) {
	engine := GetNativeEngine()
	require.NotNil(t, engine)
	require.Equal(t, CheckEndianness(), binary.ByteOrder(engine))
}

// TestNativeEngineRoundTrip covers the usage pattern of the allocator
// bridge: a uint64 size header written and read back on the same host.
func TestNativeEngineRoundTrip(t *testing.T) {
	engine := GetNativeEngine()

	buf := make([]byte, 8)
	engine.PutUint64(buf, 0xDEADBEEFCAFE1234)
	require.Equal(t, uint64(0xDEADBEEFCAFE1234), engine.Uint64(buf))

	appended := engine.AppendUint64(nil, 42)
	require.Len(t, appended, 8)
	require.Equal(t, uint64(42), engine.Uint64(appended))
}
