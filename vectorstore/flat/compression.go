package flat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType defines the snapshot block compression algorithm.
type CompressionType uint8

const (
	// CompressionNone indicates no compression.
	CompressionNone CompressionType = 0
	// CompressionLZ4 indicates LZ4 block compression (fast).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD indicates ZSTD block compression (better ratio).
	CompressionZSTD CompressionType = 2
)

// ZSTD encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Block format: [UncompressedSize uint32][CompressedSize uint32][Data...]
// If CompressedSize == 0, the block is stored uncompressed.
const blockHeaderSize = 8

// compressBlock compresses a block using the specified algorithm.
// Falls back to storing uncompressed when compression does not help.
func compressBlock(data []byte, compressionType CompressionType) ([]byte, error) {
	var compressed []byte
	var err error

	switch compressionType {
	case CompressionLZ4:
		compressed, err = compressBlockLZ4(data)
	case CompressionZSTD:
		compressed, err = compressBlockZSTD(data)
	}
	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store uncompressed.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

func compressBlockLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return compressed[:n], nil
}

func compressBlockZSTD(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// compressedBlockWriter writes compressed blocks to an underlying writer.
type compressedBlockWriter struct {
	w               io.Writer
	compressionType CompressionType
	blockSize       int
	buffer          *bytes.Buffer
}

func newCompressedBlockWriter(w io.Writer, compressionType CompressionType, blockSize int) *compressedBlockWriter {
	if blockSize <= 0 {
		blockSize = 256 * 1024
	}
	return &compressedBlockWriter{
		w:               w,
		compressionType: compressionType,
		blockSize:       blockSize,
		buffer:          bytes.NewBuffer(make([]byte, 0, blockSize)),
	}
}

func (c *compressedBlockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := c.blockSize - c.buffer.Len()
		if space <= 0 {
			if err := c.flushBlock(); err != nil {
				return total, err
			}
			space = c.blockSize
		}

		toWrite := len(p)
		if toWrite > space {
			toWrite = space
		}

		n, err := c.buffer.Write(p[:toWrite])
		if err != nil {
			return total, err
		}
		total += n
		p = p[n:]
	}
	return total, nil
}

func (c *compressedBlockWriter) flushBlock() error {
	if c.buffer.Len() == 0 {
		return nil
	}

	compressed, err := compressBlock(c.buffer.Bytes(), c.compressionType)
	if err != nil {
		return err
	}
	if _, err := c.w.Write(compressed); err != nil {
		return err
	}
	c.buffer.Reset()
	return nil
}

// Flush writes any remaining buffered data.
func (c *compressedBlockWriter) Flush() error {
	return c.flushBlock()
}

// decompressAll reads all compressed blocks starting at startOffset and
// returns the full decompressed payload.
func decompressAll(data []byte, startOffset int64, compressionType CompressionType) ([]byte, error) {
	var result []byte
	offset := startOffset

	for int(offset) < len(data) {
		if int(offset)+blockHeaderSize > len(data) {
			return nil, errors.New("block too small for header")
		}

		uncompressedSize := binary.LittleEndian.Uint32(data[offset:])
		compressedSize := binary.LittleEndian.Uint32(data[offset+4:])

		if compressedSize == 0 {
			end := offset + blockHeaderSize + int64(uncompressedSize)
			if int(end) > len(data) {
				return nil, errors.New("block extends beyond data")
			}
			result = append(result, data[offset+blockHeaderSize:end]...)
			offset = end
			continue
		}

		end := offset + blockHeaderSize + int64(compressedSize)
		if int(end) > len(data) {
			return nil, errors.New("compressed block extends beyond data")
		}
		compressedData := data[offset+blockHeaderSize : end]
		block := make([]byte, uncompressedSize)

		switch compressionType {
		case CompressionZSTD:
			dec := getZstdDecoder()
			decoded, err := dec.DecodeAll(compressedData, block[:0])
			putZstdDecoder(dec)
			if err != nil {
				return nil, err
			}
			if uint32(len(decoded)) != uncompressedSize {
				return nil, errors.New("decompressed size mismatch")
			}
			result = append(result, decoded...)

		default: // LZ4
			n, err := lz4.UncompressBlock(compressedData, block)
			if err != nil {
				return nil, err
			}
			if uint32(n) != uncompressedSize {
				return nil, errors.New("decompressed size mismatch")
			}
			result = append(result, block[:n]...)
		}

		offset = end
	}

	return result, nil
}
