package internal

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/db"
)

// TestSizeBytes tests the SizeBytes method
func TestSizeBytes(t *testing.T) {
	tests := []struct {
		name     string
		command  Command
		expected int
	}{
		{
			name: "Command with collection, id and payload",
			command: Command{
				Type:       CommandTUpdate,
				Now:        1,
				Collection: "carts",
				ID:         "CART001",
				Payload:    []byte(`{"a":1}`),
			},
			expected: 1 + 8 + 4 + 4 + 5 + 7 + 7, // Type + Now + CollectionLen + IDLen + Collection + ID + Payload
		},
		{
			name: "Create command without id",
			command: Command{
				Type:       CommandTCreate,
				Collection: "carts",
				Payload:    []byte(`{}`),
			},
			expected: 1 + 8 + 4 + 4 + 5 + 0 + 2,
		},
		{
			name: "Delete command without payload",
			command: Command{
				Type:       CommandTDelete,
				Collection: "carts",
				ID:         "CART001",
			},
			expected: 1 + 8 + 4 + 4 + 5 + 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size := tt.command.SizeBytes()
			if size != tt.expected {
				t.Errorf("SizeBytes() = %v, want %v", size, tt.expected)
			}
		})
	}
}

// TestSerializeDeserialize tests both Serialize and Deserialize methods
func TestSerializeDeserialize(t *testing.T) {
	tests := []struct {
		name    string
		command Command
	}{
		{
			name: "Update command with payload",
			command: Command{
				Type:       CommandTUpdate,
				Now:        1700000000000000000,
				Collection: "customers",
				ID:         "CUST001",
				Payload:    []byte(`{"name":"Alice"}`),
			},
		},
		{
			name: "Delete command without payload",
			command: Command{
				Type:       CommandTDelete,
				Now:        5,
				Collection: "customers",
				ID:         "CUST001",
				Payload:    nil,
			},
		},
		{
			name: "Create command with empty id",
			command: Command{
				Type:       CommandTCreate,
				Now:        5,
				Collection: "customers",
				Payload:    []byte(`{"name":"Bob"}`),
			},
		},
		{
			name: "Negative timestamp",
			command: Command{
				Type:       CommandTApply,
				Now:        math.MinInt64,
				Collection: "loyalty_cards",
				ID:         "LOY001",
				Payload:    []byte(`{"type":"append_ledger"}`),
			},
		},
		{
			name: "Unicode collection and id",
			command: Command{
				Type:       CommandTUpdate,
				Now:        42,
				Collection: "lösungen",
				ID:         "你好世界",
				Payload:    []byte(`{}`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Serialize
			data := tt.command.Serialize()

			// Deserialize into a new command
			var newCommand Command
			err := newCommand.Deserialize(data)
			if err != nil {
				t.Fatalf("Deserialize() error = %v", err)
			}

			if newCommand.Type != tt.command.Type {
				t.Errorf("Type mismatch: got %v, want %v", newCommand.Type, tt.command.Type)
			}
			if newCommand.Now != tt.command.Now {
				t.Errorf("Now mismatch: got %v, want %v", newCommand.Now, tt.command.Now)
			}
			if newCommand.Collection != tt.command.Collection {
				t.Errorf("Collection mismatch: got %q, want %q", newCommand.Collection, tt.command.Collection)
			}
			if newCommand.ID != tt.command.ID {
				t.Errorf("ID mismatch: got %q, want %q", newCommand.ID, tt.command.ID)
			}

			// Payload comparison handling nil case
			if tt.command.Payload == nil {
				if len(newCommand.Payload) != 0 {
					t.Errorf("Payload should be nil or empty, got %v", newCommand.Payload)
				}
			} else if !bytes.Equal(newCommand.Payload, tt.command.Payload) {
				t.Errorf("Payload mismatch: got %s, want %s", newCommand.Payload, tt.command.Payload)
			}

			// Verify that SizeBytes matches the serialized data length
			if tt.command.SizeBytes() != len(data) {
				t.Errorf("SizeBytes() = %d, but serialized data length = %d",
					tt.command.SizeBytes(), len(data))
			}
		})
	}
}

// TestDeserializeErrors tests error cases in Deserialize
func TestDeserializeErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		expectedErr string
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectedErr: "data too short for command",
		},
		{
			name:        "Data too short (less than header)",
			data:        []byte{1, 2, 3, 4, 5},
			expectedErr: "data too short for command",
		},
		{
			name: "Invalid collection length",
			data: func() []byte {
				data := make([]byte, headerSize)
				data[0] = byte(CommandTUpdate)
				binary.BigEndian.PutUint32(data[9:13], 1000)
				binary.BigEndian.PutUint32(data[13:17], 3)
				return data
			}(),
			expectedErr: "data too short for collection of length 1000 and id of length 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd Command
			err := cmd.Deserialize(tt.data)

			if err == nil {
				t.Fatalf("Expected error but got nil")
			}
			if err.Error() != tt.expectedErr {
				t.Errorf("Expected error %q, got %q", tt.expectedErr, err.Error())
			}
		})
	}
}

// TestBinaryFormat tests the exact binary format of serialized commands
func TestBinaryFormat(t *testing.T) {
	cmd := Command{
		Type:       CommandTApply,
		Now:        12345,
		Collection: "carts",
		ID:         "CART001",
		Payload:    []byte("{}"),
	}

	expected := make([]byte, cmd.SizeBytes())
	expected[0] = byte(CommandTApply)
	binary.BigEndian.PutUint64(expected[1:9], 12345)
	binary.BigEndian.PutUint32(expected[9:13], 5)
	binary.BigEndian.PutUint32(expected[13:17], 7)
	copy(expected[17:22], "carts")
	copy(expected[22:29], "CART001")
	copy(expected[29:], "{}")

	serialized := cmd.Serialize()
	if !bytes.Equal(serialized, expected) {
		t.Errorf("Binary format does not match:\nGot:      %v\nExpected: %v", serialized, expected)
	}
}

// TestBufferReuse tests that the Deserialize method reuses the payload buffer when possible
func TestBufferReuse(t *testing.T) {
	cmd := Command{
		Type:       CommandTUpdate,
		Collection: "c",
		ID:         "id",
		Payload:    []byte(`{"original":1}`),
	}
	originalCap := cap(cmd.Payload)

	smaller := Command{Type: CommandTUpdate, Collection: "c", ID: "id", Payload: []byte(`{"x":1}`)}
	if err := cmd.Deserialize(smaller.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if cap(cmd.Payload) != originalCap {
		t.Errorf("Buffer was not reused: capacity changed from %d to %d", originalCap, cap(cmd.Payload))
	}
	if !bytes.Equal(cmd.Payload, smaller.Payload) {
		t.Errorf("Payload not correctly deserialized: got %q, want %q", cmd.Payload, smaller.Payload)
	}

	larger := Command{Type: CommandTUpdate, Collection: "c", ID: "id", Payload: []byte(`{"this is a much longer payload":"that won't fit in the original buffer"}`)}
	if err := cmd.Deserialize(larger.Serialize()); err != nil {
		t.Fatalf("Deserialize() error = %v", err)
	}
	if cap(cmd.Payload) <= originalCap {
		t.Errorf("Buffer capacity did not increase for larger payload: still %d", cap(cmd.Payload))
	}
	if !bytes.Equal(cmd.Payload, larger.Payload) {
		t.Errorf("Payload not correctly deserialized")
	}
}

func TestToDBFeature(t *testing.T) {
	tests := []struct {
		ct      CommandType
		want    db.Feature
		wantErr bool
	}{
		{CommandTCreate, db.FeatureInsert | db.FeatureHas | db.FeatureScan, false},
		{CommandTUpdate, db.FeatureGet | db.FeatureReplace, false},
		{CommandTApply, db.FeatureGet | db.FeatureReplace, false},
		{CommandTDelete, db.FeatureDelete, false},
		{CommandType(99), 0, true},
	}
	for _, tt := range tests {
		got, err := tt.ct.ToDBFeature()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.ToDBFeature() error = %v, wantErr %v", tt.ct, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("%s.ToDBFeature() = %v, want %v", tt.ct, got, tt.want)
		}
	}
}
