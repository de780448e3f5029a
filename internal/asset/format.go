// Package asset reads and writes the binary tree blobs the engine loads at
// startup. A blob is a fixed header followed by a zstd-compressed pre-order
// encoding of the tree.
package asset

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phonetic-Candidate-Engine/pkg/errors"
)

const (
	PrefixTreeMagic  uint32 = 0x50434554
	AssociativeMagic uint32 = 0x50434541
	FormatVersion    uint32 = 1
	HeaderSize       int    = 24

	// FlagZstd marks a zstd-compressed payload. It is always set by this
	// version of the writer.
	FlagZstd uint32 = 1 << 0

	maxPayload = 1 << 30
)

// Header is the fixed-size prefix of every asset blob.
type Header struct {
	Magic      uint32
	Version    uint32
	Flags      uint32
	NodeCount  uint32
	PayloadLen uint32
	Checksum   uint32
}

func (h Header) encode() []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.Flags)
	binary.LittleEndian.PutUint32(b[12:16], h.NodeCount)
	binary.LittleEndian.PutUint32(b[16:20], h.PayloadLen)
	binary.LittleEndian.PutUint32(b[20:24], h.Checksum)
	return b
}

func decodeHeader(b []byte) Header {
	return Header{
		Magic:      binary.LittleEndian.Uint32(b[0:4]),
		Version:    binary.LittleEndian.Uint32(b[4:8]),
		Flags:      binary.LittleEndian.Uint32(b[8:12]),
		NodeCount:  binary.LittleEndian.Uint32(b[12:16]),
		PayloadLen: binary.LittleEndian.Uint32(b[16:20]),
		Checksum:   binary.LittleEndian.Uint32(b[20:24]),
	}
}

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

func codecs() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayload))
	})
	return encoder, decoder, codecErr
}

// writeBlob compresses raw and writes header plus payload to w.
func writeBlob(w io.Writer, magic uint32, nodes int, raw []byte) error {
	enc, _, err := codecs()
	if err != nil {
		return fmt.Errorf("initializing zstd: %w", err)
	}
	payload := enc.EncodeAll(raw, nil)
	if len(payload) > maxPayload {
		return fmt.Errorf("asset payload too large: %d bytes", len(payload))
	}
	h := Header{
		Magic:      magic,
		Version:    FormatVersion,
		Flags:      FlagZstd,
		NodeCount:  uint32(nodes),
		PayloadLen: uint32(len(payload)),
		Checksum:   crc32.ChecksumIEEE(payload),
	}
	if _, err := w.Write(h.encode()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("writing payload: %w", err)
	}
	return nil
}

// readBlob validates the header against magic and returns the decompressed
// payload.
func readBlob(r io.Reader, magic uint32) (Header, []byte, error) {
	hb := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return Header{}, nil, fmt.Errorf("%w: reading header: %v", apperrors.ErrCorruptAsset, err)
	}
	h := decodeHeader(hb)
	if h.Magic != magic {
		return h, nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorruptAsset, h.Magic)
	}
	if h.Version != FormatVersion {
		return h, nil, fmt.Errorf("%w: unsupported version %d", apperrors.ErrCorruptAsset, h.Version)
	}
	if h.PayloadLen > maxPayload {
		return h, nil, fmt.Errorf("%w: payload length %d", apperrors.ErrCorruptAsset, h.PayloadLen)
	}
	payload := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return h, nil, fmt.Errorf("%w: reading payload: %v", apperrors.ErrCorruptAsset, err)
	}
	if sum := crc32.ChecksumIEEE(payload); sum != h.Checksum {
		return h, nil, fmt.Errorf("%w: checksum mismatch %08x != %08x", apperrors.ErrCorruptAsset, sum, h.Checksum)
	}
	if h.Flags&FlagZstd == 0 {
		return h, payload, nil
	}
	_, dec, err := codecs()
	if err != nil {
		return h, nil, fmt.Errorf("initializing zstd: %w", err)
	}
	raw, err := dec.DecodeAll(payload, nil)
	if err != nil {
		return h, nil, fmt.Errorf("%w: decompressing payload: %v", apperrors.ErrCorruptAsset, err)
	}
	return h, raw, nil
}

// cursor walks a decompressed payload.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) uvarint() (uint64, error) {
	v, n := binary.Uvarint(c.buf[c.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad uvarint at offset %d", apperrors.ErrCorruptAsset, c.off)
	}
	c.off += n
	return v, nil
}

func (c *cursor) varint() (int64, error) {
	v, n := binary.Varint(c.buf[c.off:])
	if n <= 0 {
		return 0, fmt.Errorf("%w: bad varint at offset %d", apperrors.ErrCorruptAsset, c.off)
	}
	c.off += n
	return v, nil
}

// count reads a length prefix that cannot exceed the bytes left.
func (c *cursor) count() (int, error) {
	v, err := c.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(c.buf)-c.off) {
		return 0, fmt.Errorf("%w: count %d exceeds remaining payload", apperrors.ErrCorruptAsset, v)
	}
	return int(v), nil
}

func (c *cursor) rune() (rune, error) {
	v, err := c.uvarint()
	if err != nil {
		return 0, err
	}
	if v > 0x10FFFF {
		return 0, fmt.Errorf("%w: invalid symbol %d", apperrors.ErrCorruptAsset, v)
	}
	return rune(v), nil
}

func (c *cursor) str() (string, error) {
	n, err := c.count()
	if err != nil {
		return "", err
	}
	s := string(c.buf[c.off : c.off+n])
	c.off += n
	return s, nil
}

func (c *cursor) done() error {
	if c.off != len(c.buf) {
		return fmt.Errorf("%w: %d trailing bytes", apperrors.ErrCorruptAsset, len(c.buf)-c.off)
	}
	return nil
}
