// Package compression compresses encoded column entity frames before they
// reach a storage backend. It supports several algorithms with configurable
// levels, pooled encoder state and a bound on decompressed size.
//
// # Algorithm Selection
//
//   - Snappy/S2: best for speed, moderate compression
//   - LZ4: extremely fast, decent compression
//   - Zstd: best compression ratio, good speed
//   - Gzip/Deflate: wide compatibility
//
// # Basic Usage
//
//	comp, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Default,
//	})
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
//
// Every algorithm has a one byte identifier (see Algorithm.ID) so that a
// frame can record how its payload was compressed.
package compression

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/colmap/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
)

// identifiers are part of the frame format and must never be renumbered.
var identifiers = map[Algorithm]byte{
	None:    0,
	Gzip:    1,
	Snappy:  2,
	LZ4:     3,
	Zstd:    4,
	S2:      5,
	Deflate: 6,
}

// Algorithms lists the supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}
}

// ID returns the frame identifier of the algorithm.
func (a Algorithm) ID() (byte, bool) {
	id, ok := identifiers[a]
	return id, ok
}

// AlgorithmByID resolves a frame identifier.
func AlgorithmByID(id byte) (Algorithm, bool) {
	for a, v := range identifiers {
		if v == id {
			return a, true
		}
	}
	return "", false
}

// ParseAlgorithm parses an algorithm name, case-insensitively. The empty
// string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if a == "" {
		return None, nil
	}
	if _, ok := identifiers[a]; !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", s).
			WithDetail("algorithm", s)
	}
	return a, nil
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// DefaultMaxDecompressedSize bounds the output of Decompress.
const DefaultMaxDecompressedSize = 64 << 20

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	// The input data is not modified.
	Decompress(data []byte) ([]byte, error)

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm // Compression algorithm to use
	Level     Level     // Compression level
	// MaxDecompressedSize bounds Decompress output; zero means
	// DefaultMaxDecompressedSize.
	MaxDecompressedSize int64
}

// DefaultConfig returns the default configuration: Snappy at the default
// level.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:           Snappy,
		Level:               Default,
		MaxDecompressedSize: DefaultMaxDecompressedSize,
	}
}

// NewCompressor creates a compressor for config. A nil config selects
// DefaultConfig.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	base := baseCompressor{
		algorithm: config.Algorithm,
		level:     config.Level,
		limit:     config.MaxDecompressedSize,
	}
	if base.limit <= 0 {
		base.limit = DefaultMaxDecompressedSize
	}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{baseCompressor: base}, nil
	case Gzip:
		return newGzipCompressor(base), nil
	case Snappy:
		return &snappyCompressor{baseCompressor: base}, nil
	case LZ4:
		return &lz4Compressor{baseCompressor: base, compressionLevel: mapLZ4Level(config.Level)}, nil
	case Zstd:
		return newZstdCompressor(base)
	case S2:
		return &s2Compressor{baseCompressor: base}, nil
	case Deflate:
		return &deflateCompressor{baseCompressor: base, flateLevel: mapDeflateLevel(config.Level)}, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported compression algorithm: %s", config.Algorithm).
			WithDetail("algorithm", string(config.Algorithm))
	}
}

// Registry keeps one compressor per algorithm so that frames written with any
// algorithm can be read back.
type Registry struct {
	mu          sync.Mutex
	level       Level
	limit       int64
	compressors map[Algorithm]Compressor
}

// NewRegistry creates a registry whose compressors use level and limit.
func NewRegistry(level Level, limit int64) *Registry {
	return &Registry{
		level:       level,
		limit:       limit,
		compressors: make(map[Algorithm]Compressor),
	}
}

// Get returns the compressor for a, creating it on first use.
func (r *Registry) Get(a Algorithm) (Compressor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.compressors[a]; ok {
		return c, nil
	}
	c, err := NewCompressor(&Config{Algorithm: a, Level: r.level, MaxDecompressedSize: r.limit})
	if err != nil {
		return nil, err
	}
	r.compressors[a] = c
	return c, nil
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
	limit     int64
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// readAll drains r, failing once more than the configured limit is produced.
func (bc *baseCompressor) readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, bc.limit+1))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeCodec, string(bc.algorithm)+" decompression failed")
	}
	if n > bc.limit {
		return nil, bc.tooLarge()
	}
	return buf.Bytes(), nil
}

func (bc *baseCompressor) checkLen(n int) error {
	if int64(n) > bc.limit {
		return bc.tooLarge()
	}
	return nil
}

func (bc *baseCompressor) tooLarge() error {
	return errors.Newf(errors.ErrorTypeCodec, "%s payload exceeds %d bytes once decompressed", bc.algorithm, bc.limit).
		WithDetail("limit", bc.limit)
}

func codecError(err error, a Algorithm, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, errors.ErrorTypeCodec, string(a)+" "+op+" failed")
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	if err := nc.checkLen(len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	writerPool sync.Pool
	readerPool sync.Pool
}

func newGzipCompressor(base baseCompressor) *gzipCompressor {
	level := mapGzipLevel(base.level)
	gc := &gzipCompressor{baseCompressor: base}
	gc.writerPool.New = func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, level)
		return w
	}
	gc.readerPool.New = func() interface{} {
		return new(gzip.Reader)
	}
	return gc
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, codecError(err, Gzip, "compression")
	}
	if err := w.Close(); err != nil {
		return nil, codecError(err, Gzip, "compression")
	}
	return buf.Bytes(), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, codecError(err, Gzip, "decompression")
	}
	return gc.readAll(r)
}

func (gc *gzipCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := gc.writerPool.Get().(*gzip.Writer)
	defer gc.writerPool.Put(w)

	w.Reset(dst)
	if _, err := io.Copy(w, src); err != nil {
		return codecError(err, Gzip, "compression")
	}
	return codecError(w.Close(), Gzip, "compression")
}

func (gc *gzipCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r := gc.readerPool.Get().(*gzip.Reader)
	defer gc.readerPool.Put(r)

	if err := r.Reset(src); err != nil {
		return codecError(err, Gzip, "decompression")
	}
	_, err := io.Copy(dst, r)
	return codecError(err, Gzip, "decompression")
}

// Snappy compressor
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (sc *snappyCompressor) Decompress(data []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, codecError(err, Snappy, "decompression")
	}
	if err := sc.checkLen(n); err != nil {
		return nil, err
	}
	out, err := snappy.Decode(nil, data)
	return out, codecError(err, Snappy, "decompression")
}

func (sc *snappyCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := snappy.NewBufferedWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return codecError(err, Snappy, "compression")
	}
	return codecError(w.Close(), Snappy, "compression")
}

func (sc *snappyCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, snappy.NewReader(src))
	return codecError(err, Snappy, "decompression")
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := lc.CompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	return lc.readAll(lz4.NewReader(bytes.NewReader(data)))
}

func (lc *lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return codecError(err, LZ4, "compression")
	}
	if _, err := io.Copy(w, src); err != nil {
		return codecError(err, LZ4, "compression")
	}
	return codecError(w.Close(), LZ4, "compression")
}

func (lc *lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, lz4.NewReader(src))
	return codecError(err, LZ4, "decompression")
}

// Zstd compressor. EncodeAll and DecodeAll are safe for concurrent use, so a
// single encoder and decoder are shared.
type zstdCompressor struct {
	baseCompressor
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newZstdCompressor(base baseCompressor) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(mapZstdLevel(base.level)))
	if err != nil {
		return nil, codecError(err, Zstd, "encoder setup")
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(uint64(base.limit)))
	if err != nil {
		return nil, codecError(err, Zstd, "decoder setup")
	}
	return &zstdCompressor{baseCompressor: base, encoder: enc, decoder: dec}, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	return zc.encoder.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := zc.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, codecError(err, Zstd, "decompression")
	}
	if err := zc.checkLen(len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (zc *zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(mapZstdLevel(zc.level)))
	if err != nil {
		return codecError(err, Zstd, "compression")
	}
	if _, err := io.Copy(enc, src); err != nil {
		_ = enc.Close()
		return codecError(err, Zstd, "compression")
	}
	return codecError(enc.Close(), Zstd, "compression")
}

func (zc *zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return codecError(err, Zstd, "decompression")
	}
	defer dec.Close()

	_, err = io.Copy(dst, dec)
	return codecError(err, Zstd, "decompression")
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) Compress(data []byte) ([]byte, error) {
	if sc.level >= Better {
		return s2.EncodeBetter(nil, data), nil
	}
	return s2.Encode(nil, data), nil
}

func (sc *s2Compressor) Decompress(data []byte) ([]byte, error) {
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, codecError(err, S2, "decompression")
	}
	if err := sc.checkLen(n); err != nil {
		return nil, err
	}
	out, err := s2.Decode(nil, data)
	return out, codecError(err, S2, "decompression")
}

func (sc *s2Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := s2.NewWriter(dst)
	if _, err := io.Copy(w, src); err != nil {
		return codecError(err, S2, "compression")
	}
	return codecError(w.Close(), S2, "compression")
}

func (sc *s2Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, s2.NewReader(src))
	return codecError(err, S2, "decompression")
}

// Deflate compressor
type deflateCompressor struct {
	baseCompressor
	flateLevel int
}

func (dc *deflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.CompressStream(&buf, bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (dc *deflateCompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return dc.readAll(r)
}

func (dc *deflateCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	w, err := flate.NewWriter(dst, dc.flateLevel)
	if err != nil {
		return codecError(err, Deflate, "compression")
	}
	if _, err := io.Copy(w, src); err != nil {
		return codecError(err, Deflate, "compression")
	}
	return codecError(w.Close(), Deflate, "compression")
}

func (dc *deflateCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r := flate.NewReader(src)
	defer r.Close()

	_, err := io.Copy(dst, r)
	return codecError(err, Deflate, "decompression")
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
