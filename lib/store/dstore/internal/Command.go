package internal

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/db"
)

// CommandType defines the possible operations for the state machine.
type CommandType uint8

const (
	CommandTCreate CommandType = iota // Insert a new document, generating its id if necessary.
	CommandTUpdate                    // Merge a partial document into a stored one.
	CommandTDelete                    // Delete a document.
	CommandTApply                     // Run a compound mutation on a stored document.
)

func (ct CommandType) String() string {
	switch ct {
	case CommandTCreate:
		return "Create"
	case CommandTUpdate:
		return "Update"
	case CommandTDelete:
		return "Delete"
	case CommandTApply:
		return "Apply"
	default:
		return fmt.Sprintf("Unknown(%d)", ct)
	}
}

// ToDBFeature converts a CommandType to the db.Feature flags the operation needs.
// This can be used for checking if the database supports a certain operation.
func (ct CommandType) ToDBFeature() (db.Feature, error) {
	switch ct {
	case CommandTCreate:
		return db.FeatureInsert | db.FeatureHas | db.FeatureScan, nil
	case CommandTUpdate, CommandTApply:
		return db.FeatureGet | db.FeatureReplace, nil
	case CommandTDelete:
		return db.FeatureDelete, nil
	default:
		return 0, fmt.Errorf("unknown command type %d", ct)
	}
}

// headerSize is Type + Now + CollectionLen + IDLen
const headerSize = 1 + 8 + 4 + 4

// Command represents a command to be executed by the state machine (a single entry in the raft log)
type Command struct {
	Type       CommandType
	Now        int64 // unix nanoseconds stamped by the proposer, used for createdAt/modifiedAt
	Collection string
	ID         string
	Payload    []byte // JSON document (Create, Update) or mutation (Apply)
}

// SizeBytes returns the exact number of bytes needed to serialize this command
func (command *Command) SizeBytes() int {
	return headerSize + len(command.Collection) + len(command.ID) + len(command.Payload)
}

// Serialize serializes a command into a byte array with the format:
// 1 byte for operation type,
// 8 bytes for the timestamp (big endian),
// 4 bytes for collection length (big endian),
// 4 bytes for id length (big endian),
// N bytes for collection,
// M bytes for id,
// the remaining bytes for the payload (optional)
func (command *Command) Serialize() []byte {
	result := make([]byte, command.SizeBytes())

	result[0] = byte(command.Type)
	binary.BigEndian.PutUint64(result[1:9], uint64(command.Now))
	binary.BigEndian.PutUint32(result[9:13], uint32(len(command.Collection)))
	binary.BigEndian.PutUint32(result[13:17], uint32(len(command.ID)))

	offset := headerSize
	offset += copy(result[offset:], command.Collection)
	offset += copy(result[offset:], command.ID)
	copy(result[offset:], command.Payload)

	return result
}

// Deserialize extracts all Command fields from a byte array.
func (command *Command) Deserialize(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("data too short for command")
	}

	command.Type = CommandType(data[0])
	command.Now = int64(binary.BigEndian.Uint64(data[1:9]))
	collectionLen := int(binary.BigEndian.Uint32(data[9:13]))
	idLen := int(binary.BigEndian.Uint32(data[13:17]))

	if len(data) < headerSize+collectionLen+idLen {
		return fmt.Errorf("data too short for collection of length %d and id of length %d", collectionLen, idLen)
	}

	offset := headerSize
	command.Collection = string(data[offset : offset+collectionLen])
	offset += collectionLen
	command.ID = string(data[offset : offset+idLen])
	offset += idLen

	if len(data) > offset {
		payloadLen := len(data) - offset
		// Reuse existing buffer if possible to reduce allocations
		if command.Payload == nil || cap(command.Payload) < payloadLen {
			command.Payload = make([]byte, payloadLen)
		} else {
			command.Payload = command.Payload[:payloadLen]
		}
		copy(command.Payload, data[offset:])
	} else {
		command.Payload = nil
	}

	return nil
}
