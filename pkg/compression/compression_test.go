package compression

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	t.Run("SmallPayloadUntouched", func(t *testing.T) {
		in := []byte("short text")
		out, compressed, err := Compress(in)
		require.NoError(t, err)
		assert.False(t, compressed)
		assert.Equal(t, in, out)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		in := bytes.Repeat([]byte("clipboard history "), 200)
		out, compressed, err := Compress(in)
		require.NoError(t, err)
		require.True(t, compressed)
		assert.Less(t, len(out), len(in))

		back, err := Decompress(out)
		require.NoError(t, err)
		assert.Equal(t, in, back)
	})

	t.Run("IncompressibleKept", func(t *testing.T) {
		in := make([]byte, 4096)
		_, err := rand.Read(in)
		require.NoError(t, err)

		out, compressed, err := Compress(in)
		require.NoError(t, err)
		assert.False(t, compressed)
		assert.Equal(t, in, out)
	})

	t.Run("CorruptInput", func(t *testing.T) {
		_, err := Decompress([]byte("not gzip"))
		assert.Error(t, err)
	})
}
