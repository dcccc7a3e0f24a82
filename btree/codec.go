package btree

import (
	"encoding/binary"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Codec serializes and deserializes a single value of type T to and
// from a byte stream. Encode/Decode must be inverses and stable
// across process runs; EncodedSize is advisory and is never relied
// on by the core to size a fixed-width record.
type Codec[T any] interface {
	Encode(w io.Writer, v T) error
	Decode(r io.Reader) (T, error)
	EncodedSize(v T) int
}

// Uint64Codec encodes a uint64 as 8 big-endian bytes.
type Uint64Codec struct{}

func (Uint64Codec) Encode(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "encode uint64")
}

func (Uint64Codec) Decode(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "decode uint64")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func (Uint64Codec) EncodedSize(uint64) int { return 8 }

// IntCodec encodes a Go int as a zigzag varint, so small magnitude
// values (positive or negative) stay compact on disk.
type IntCodec struct{}

func (IntCodec) Encode(w io.Writer, v int) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], int64(v))
	_, err := w.Write(buf[:n])
	return errors.Wrap(err, "encode int")
}

func (IntCodec) Decode(r io.Reader) (int, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r}
	}
	v, err := binary.ReadVarint(br)
	if err != nil {
		return 0, errors.Wrap(err, "decode int")
	}
	return int(v), nil
}

func (IntCodec) EncodedSize(v int) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutVarint(buf[:], int64(v))
}

// BytesCodec encodes a byte slice as a varint length prefix followed
// by the raw bytes.
type BytesCodec struct{}

func (BytesCodec) Encode(w io.Writer, v []byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(v)))
	if _, err := w.Write(lenBuf[:n]); err != nil {
		return errors.Wrap(err, "encode bytes length")
	}
	if _, err := w.Write(v); err != nil {
		return errors.Wrap(err, "encode bytes payload")
	}
	return nil
}

func (BytesCodec) Decode(r io.Reader) ([]byte, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r}
	}
	size, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errors.Wrap(err, "decode bytes length")
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "decode bytes payload")
	}
	return buf, nil
}

func (BytesCodec) EncodedSize(v []byte) int {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(v)))
	return n + len(v)
}

// byteReaderAdapter adapts an io.Reader without ReadByte into one
// that binary.ReadUvarint can consume, one byte at a time.
type byteReaderAdapter struct{ io.Reader }

func (b *byteReaderAdapter) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b.Reader, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// StringCodec encodes a string the same way BytesCodec encodes a
// byte slice, round-tripping through []byte.
type StringCodec struct{}

func (StringCodec) Encode(w io.Writer, v string) error {
	return BytesCodec{}.Encode(w, []byte(v))
}

func (StringCodec) Decode(r io.Reader) (string, error) {
	b, err := (BytesCodec{}).Decode(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (StringCodec) EncodedSize(v string) int {
	return (BytesCodec{}).EncodedSize([]byte(v))
}

// SnappyCodec wraps BytesCodec, snappy-compressing the payload before
// the length prefix is written and decompressing on decode. It is a
// drop-in Codec[[]byte] for callers who want smaller data files at
// the cost of CPU on every read/write.
type SnappyCodec struct{}

func (SnappyCodec) Encode(w io.Writer, v []byte) error {
	compressed := snappy.Encode(nil, v)
	return (BytesCodec{}).Encode(w, compressed)
}

func (SnappyCodec) Decode(r io.Reader) ([]byte, error) {
	compressed, err := (BytesCodec{}).Decode(r)
	if err != nil {
		return nil, err
	}
	decoded, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "snappy decode")
	}
	return decoded, nil
}

func (SnappyCodec) EncodedSize(v []byte) int {
	return (BytesCodec{}).EncodedSize(snappy.Encode(nil, v))
}
