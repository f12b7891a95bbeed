package compression

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

var sample = []byte(strings.Repeat(`{"name":"_id","type":"int64","value":10},`, 64))

func TestRoundTripAllAlgorithms(t *testing.T) {
	for _, algorithm := range Algorithms() {
		for _, level := range []Level{Fastest, Default, Best} {
			t.Run(string(algorithm), func(t *testing.T) {
				c, err := NewCompressor(&Config{Algorithm: algorithm, Level: level})
				require.NoError(t, err)
				assert.Equal(t, algorithm, c.Algorithm())
				assert.Equal(t, level, c.Level())

				compressed, err := c.Compress(sample)
				require.NoError(t, err)
				if algorithm != None {
					assert.Less(t, len(compressed), len(sample))
				}

				decompressed, err := c.Decompress(compressed)
				require.NoError(t, err)
				assert.Equal(t, sample, decompressed)

				var stream bytes.Buffer
				require.NoError(t, c.CompressStream(&stream, bytes.NewReader(sample)))
				var out bytes.Buffer
				require.NoError(t, c.DecompressStream(&out, &stream))
				assert.Equal(t, sample, out.Bytes())
			})
		}
	}
}

func TestDecompressRespectsLimit(t *testing.T) {
	for _, algorithm := range Algorithms() {
		t.Run(string(algorithm), func(t *testing.T) {
			writer, err := NewCompressor(&Config{Algorithm: algorithm, Level: Default})
			require.NoError(t, err)
			compressed, err := writer.Compress(sample)
			require.NoError(t, err)

			reader, err := NewCompressor(&Config{Algorithm: algorithm, Level: Default, MaxDecompressedSize: 100})
			require.NoError(t, err)
			_, err = reader.Decompress(compressed)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeCodec), "got %v", err)
		})
	}
}

func TestDecompressGarbage(t *testing.T) {
	for _, algorithm := range []Algorithm{Gzip, Snappy, Zstd, S2, LZ4} {
		t.Run(string(algorithm), func(t *testing.T) {
			c, err := NewCompressor(&Config{Algorithm: algorithm})
			require.NoError(t, err)
			_, err = c.Decompress([]byte("definitely not compressed"))
			assert.True(t, errors.IsType(err, errors.ErrorTypeCodec), "got %v", err)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm(" ZSTD ")
	require.NoError(t, err)
	assert.Equal(t, Zstd, a)

	a, err = ParseAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, None, a)

	_, err = ParseAlgorithm("brotli")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = NewCompressor(&Config{Algorithm: "brotli"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestAlgorithmIDs(t *testing.T) {
	seen := map[byte]bool{}
	for _, a := range Algorithms() {
		id, ok := a.ID()
		require.True(t, ok)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true

		back, ok := AlgorithmByID(id)
		require.True(t, ok)
		assert.Equal(t, a, back)
	}

	_, ok := AlgorithmByID(200)
	assert.False(t, ok)
}

func TestRegistryReusesCompressors(t *testing.T) {
	r := NewRegistry(Default, 0)

	first, err := r.Get(Zstd)
	require.NoError(t, err)
	second, err := r.Get(Zstd)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.Get("brotli")
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	c, err := NewCompressor(nil)
	require.NoError(t, err)
	assert.Equal(t, Snappy, c.Algorithm())
}
