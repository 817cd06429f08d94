package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCommerce/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout: 1 byte MsgType, 1 byte flags, then every present field in flag order.
// Strings and byte slices are prefixed with their length (uint32), Count is an int64,
// Ok a single byte and Err is preceded by its store code (uint64). All integers are big endian.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasCollection byte = 1 << 0
	hasID         byte = 1 << 1
	hasValue      byte = 1 << 2
	hasParams     byte = 1 << 3
	hasCount      byte = 1 << 4
	hasOk         byte = 1 << 5
	hasErr        byte = 1 << 6
	hasMeta       byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	if msg.Collection != "" {
		flags |= hasCollection
		pos = putBytes(result, pos, []byte(msg.Collection))
	}

	if msg.ID != "" {
		flags |= hasID
		pos = putBytes(result, pos, []byte(msg.ID))
	}

	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	if msg.Params != nil {
		flags |= hasParams
		pos = putBytes(result, pos, msg.Params)
	}

	if msg.Count != 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.Count))
		pos += 8
	}

	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// The code is only meaningful together with an error message
	if msg.Err != "" {
		flags |= hasErr
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Code)
		pos += 8
		pos = putBytes(result, pos, []byte(msg.Err))
	}

	if msg.Meta != nil {
		flags |= hasMeta
		putBytes(result, pos, msg.Meta)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	r := reader{data: data, pos: 2}

	msg.Collection = ""
	if flags&hasCollection != 0 {
		s, err := r.bytes("collection", nil)
		if err != nil {
			return err
		}
		msg.Collection = string(s)
	}

	msg.ID = ""
	if flags&hasID != 0 {
		s, err := r.bytes("id", nil)
		if err != nil {
			return err
		}
		msg.ID = string(s)
	}

	// Byte slices reuse the capacity of the target message
	var err error
	if flags&hasValue != 0 {
		if msg.Value, err = r.bytes("value", msg.Value); err != nil {
			return err
		}
	} else {
		msg.Value = nil
	}

	if flags&hasParams != 0 {
		if msg.Params, err = r.bytes("params", msg.Params); err != nil {
			return err
		}
	} else {
		msg.Params = nil
	}

	msg.Count = 0
	if flags&hasCount != 0 {
		n, err := r.uint64("count")
		if err != nil {
			return err
		}
		msg.Count = int64(n)
	}

	msg.Ok = false
	if flags&hasOk != 0 {
		if r.pos+1 > len(r.data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = r.data[r.pos] != 0
		r.pos += 1
	}

	msg.Err, msg.Code = "", 0
	if flags&hasErr != 0 {
		code, err := r.uint64("error code")
		if err != nil {
			return err
		}
		s, err := r.bytes("error", nil)
		if err != nil {
			return err
		}
		msg.Code = code
		msg.Err = string(s)
	}

	if flags&hasMeta != 0 {
		if msg.Meta, err = r.bytes("meta", msg.Meta); err != nil {
			return err
		}
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Collection != "" {
		size += 4 + len(msg.Collection)
	}
	if msg.ID != "" {
		size += 4 + len(msg.ID)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Params != nil {
		size += 4 + len(msg.Params)
	}
	if msg.Count != 0 {
		size += 8 // int64
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Err != "" {
		size += 8 + 4 + len(msg.Err) // code + length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

// putBytes writes a length prefixed byte slice at pos and returns the next position
func putBytes(dst []byte, pos int, src []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(src)))
	pos += 4
	copy(dst[pos:pos+len(src)], src)
	return pos + len(src)
}

// reader is a bounds checked cursor over serialized data
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// bytes reads a length prefixed field. If buf is non-nil and large enough it is reused,
// otherwise a new slice is allocated. The result is never nil.
func (r *reader) bytes(field string, buf []byte) ([]byte, error) {
	if r.pos+4 > len(r.data) {
		return nil, fmt.Errorf("data too short for %s length", field)
	}
	n := int(binary.BigEndian.Uint32(r.data[r.pos : r.pos+4]))
	r.pos += 4

	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}

	// Allocate only if needed
	if buf == nil || cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
	}
	copy(buf, r.data[r.pos:r.pos+n])
	r.pos += n
	return buf, nil
}
