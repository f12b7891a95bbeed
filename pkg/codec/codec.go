package codec

import (
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/errors"
	"github.com/ajitpratap0/colmap/pkg/metrics"
	"github.com/ajitpratap0/colmap/pkg/pool"
)

// Frame layout: magic "CM", version, algorithm identifier, payload.
const (
	magic0     byte = 'C'
	magic1     byte = 'M'
	Version    byte = 1
	headerSize      = 4
)

// Codec turns column entities into compressed frames and back. A Codec is
// safe for concurrent use.
type Codec struct {
	compressor compression.Compressor
	id         byte
	registry   *compression.Registry
}

// New creates a codec that compresses with c. A nil compressor stores
// payloads uncompressed. Decode accepts frames written with any algorithm.
func New(c compression.Compressor) (*Codec, error) {
	if c == nil {
		var err error
		c, err = compression.NewCompressor(&compression.Config{Algorithm: compression.None})
		if err != nil {
			return nil, err
		}
	}
	id, ok := c.Algorithm().ID()
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "compression algorithm %s has no frame identifier", c.Algorithm())
	}
	return &Codec{
		compressor: c,
		id:         id,
		registry:   compression.NewRegistry(c.Level(), compression.DefaultMaxDecompressedSize),
	}, nil
}

// NewWithConfig creates a codec from a compression configuration.
func NewWithConfig(cfg *compression.Config) (*Codec, error) {
	c, err := compression.NewCompressor(cfg)
	if err != nil {
		return nil, err
	}
	return New(c)
}

// Algorithm reports the algorithm used by Encode.
func (c *Codec) Algorithm() compression.Algorithm {
	return c.compressor.Algorithm()
}

// Encode serializes e into a frame.
func (c *Codec) Encode(e *column.Entity) ([]byte, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := encodeDocument(buf, e); err != nil {
		return nil, err
	}
	compressed, err := c.compressor.Compress(buf.Bytes())
	if err != nil {
		return nil, err
	}

	frame := make([]byte, headerSize, headerSize+len(compressed))
	frame[0], frame[1], frame[2], frame[3] = magic0, magic1, Version, c.id
	frame = append(frame, compressed...)
	metrics.RecordPayload(string(c.compressor.Algorithm()), len(frame))
	return frame, nil
}

// Decode parses a frame produced by Encode.
func (c *Codec) Decode(frame []byte) (*column.Entity, error) {
	algorithm, err := Inspect(frame)
	if err != nil {
		return nil, err
	}
	decompressor, err := c.registry.Get(algorithm)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCodec, "cannot read frame")
	}
	payload, err := decompressor.Decompress(frame[headerSize:])
	if err != nil {
		return nil, err
	}
	return UnmarshalJSON(payload)
}

// Inspect validates the frame header and returns the payload algorithm.
func Inspect(frame []byte) (compression.Algorithm, error) {
	if len(frame) < headerSize {
		return "", errors.Newf(errors.ErrorTypeCodec, "frame too short: %d bytes", len(frame))
	}
	if frame[0] != magic0 || frame[1] != magic1 {
		return "", errors.New(errors.ErrorTypeCodec, "not a column entity frame")
	}
	if frame[2] != Version {
		return "", errors.Newf(errors.ErrorTypeCodec, "unsupported frame version %d", frame[2]).
			WithDetail("version", frame[2])
	}
	algorithm, ok := compression.AlgorithmByID(frame[3])
	if !ok {
		return "", errors.Newf(errors.ErrorTypeCodec, "unknown compression identifier %d", frame[3]).
			WithDetail("algorithm", frame[3])
	}
	return algorithm, nil
}
