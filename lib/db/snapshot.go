package db

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// --------------------------------------------------------------------------
// Snapshot format
// --------------------------------------------------------------------------

// Snapshot layout:
//
//	magic   [8]byte  "DOCDB\x00\x00\x00"
//	version uint32   little endian
//	body    JSON     []SnapshotCollection
//
// All engines share the format, so a snapshot taken from one engine can be loaded into another.
const (
	snapshotMagic   = "DOCDB\x00\x00\x00"
	snapshotVersion = 1
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// SnapshotCollection is one collection inside a snapshot, documents in insertion order.
type SnapshotCollection struct {
	Name string         `json:"name"`
	Docs []doc.Document `json:"docs"`
}

// EncodeSnapshot writes collections to w. Collections are written sorted by name.
func EncodeSnapshot(w io.Writer, collections []SnapshotCollection) error {
	sort.Slice(collections, func(i, j int) bool { return collections[i].Name < collections[j].Name })

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(snapshotVersion)); err != nil {
		return err
	}
	if err := json.NewEncoder(bw).Encode(collections); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return bw.Flush()
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) ([]SnapshotCollection, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, magic)
	}

	var version uint32
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalidSnapshot, version, snapshotVersion)
	}

	var collections []SnapshotCollection
	if err := json.NewDecoder(br).Decode(&collections); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return collections, nil
}
