package base

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		buf     []byte
	}{
		{"Empty", nil, nil},
		{"FitsBuffer", []byte(`{"id":"PROD001"}`), make([]byte, 64)},
		{"LargerThanBuffer", make([]byte, 4096), make([]byte, 16)},
		{"NoBuffer", []byte("payload"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := net.Pipe()
			defer client.Close()
			defer server.Close()

			go func() {
				_ = writeFrame(client, 100, 7, tt.payload)
			}()

			shardID, requestID, data, err := readFrame(server, tt.buf)
			require.NoError(t, err)
			assert.Equal(t, uint64(100), shardID)
			assert.Equal(t, uint64(7), requestID)
			assert.Equal(t, len(tt.payload), len(data))
			if len(tt.payload) > 0 {
				assert.Equal(t, tt.payload, data)
			}
		})
	}
}

func TestReadFrameRejectsOversizedLength(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		var header [frameHeaderSize]byte
		binary.BigEndian.PutUint32(header[16:20], MaxFrameSize+1)
		_, _ = client.Write(header[:])
	}()

	_, _, _, err := readFrame(server, nil)
	assert.True(t, errors.Is(err, ErrFrameTooLarge), "got %v", err)
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	go func() {
		var header [frameHeaderSize]byte
		frameHeader{shardID: 1, requestID: 2, length: 10}.put(header[:])
		_, _ = client.Write(header[:])
		_, _ = client.Write([]byte("abc"))
		client.Close()
	}()

	_, _, _, err := readFrame(server, nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReadFrameCleanEOF(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	client.Close()

	_, _, _, err := readFrame(server, nil)
	assert.ErrorIs(t, err, io.EOF)
}
