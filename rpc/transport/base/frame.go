package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// Frame layout (big endian):
//
//	| shard id (8) | request id (8) | payload length (4) | payload (n) |
const (
	frameHeaderSize = 8 + 8 + 4

	// MaxFrameSize bounds the payload of a single frame. Larger lengths are treated as a
	// corrupt stream and end the connection.
	MaxFrameSize = 64 << 20
)

var ErrFrameTooLarge = errors.New("frame exceeds the maximum size")

// frameHeader addresses a payload: the shard it belongs to and the request it answers
type frameHeader struct {
	shardID   uint64
	requestID uint64
	length    uint32
}

func (h frameHeader) put(dst []byte) {
	binary.BigEndian.PutUint64(dst[0:8], h.shardID)
	binary.BigEndian.PutUint64(dst[8:16], h.requestID)
	binary.BigEndian.PutUint32(dst[16:20], h.length)
}

func parseFrameHeader(src []byte) frameHeader {
	return frameHeader{
		shardID:   binary.BigEndian.Uint64(src[0:8]),
		requestID: binary.BigEndian.Uint64(src[8:16]),
		length:    binary.BigEndian.Uint32(src[16:20]),
	}
}

// writeFrame writes header and payload with a single vectored write
func writeFrame(conn net.Conn, shardID, requestID uint64, data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	var header [frameHeaderSize]byte
	frameHeader{shardID: shardID, requestID: requestID, length: uint32(len(data))}.put(header[:])

	b := net.Buffers{header[:], data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads the next frame. The payload is read into buf when it fits, otherwise
// into a new slice, so the returned data may alias buf.
func readFrame(conn net.Conn, buf []byte) (shardID, requestID uint64, data []byte, err error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, 0, nil, err
	}
	h := parseFrameHeader(header[:])

	if h.length > MaxFrameSize {
		return 0, 0, nil, fmt.Errorf("%w: %d bytes announced", ErrFrameTooLarge, h.length)
	}
	if h.length == 0 {
		return h.shardID, h.requestID, []byte{}, nil
	}

	n := int(h.length)
	if len(buf) < n {
		buf = make([]byte, n)
	}
	if _, err := io.ReadFull(conn, buf[:n]); err != nil {
		// a connection closed between header and payload is not a clean EOF
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, 0, nil, err
	}
	return h.shardID, h.requestID, buf[:n], nil
}
