package dstore

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/lib/store/docops"
	"github.com/ValentinKolb/dCommerce/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// DocStateMachine is a state machine implementation for Dragonboat RAFT
type DocStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.DocDB // the actual dataStorage
}

// CreateStateMaschineFactory returns a function that can be used by dragenboat to create a new standmaschine for a node host
// The factory pattern is used to enable the caller to pass an interchangeable dbFactory.
// Dragonboat offers no way to report a factory error, so a failing dbFactory panics.
func CreateStateMaschineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		database, err := dbFactory()
		if err != nil {
			log.Panicf("creating database for shard %d replica %d: %v", shardID, replicaID, err)
		}
		return &DocStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  database,
		}
	}
}

// Lookup handles read-only queries by mapping each Query operation to the corresponding docops function.
func (fsm *DocStateMachine) Lookup(itf interface{}) (interface{}, error) {

	// try to parse Query into Query struct
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	switch q.Type {
	case internal.QueryTRead:
		d, found, err := docops.Read(fsm.database, q.Collection, q.ID)
		if err != nil {
			return nil, err
		}
		return internal.ReadResult{Found: found, Document: d}, nil
	case internal.QueryTList:
		return docops.List(fsm.database, q.Collection, q.Limit, q.Offset, q.Filters)
	case internal.QueryTSearch:
		return docops.Search(fsm.database, q.Collection, q.Text, q.Fields, q.Limit)
	case internal.QueryTCount:
		return docops.Count(fsm.database, q.Collection, q.Filters)
	case internal.QueryTQuery:
		return docops.Query(fsm.database, q.Collection, q.Spec)
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %d", q.Type))
	}
}

// Update handles write commands on the DocDB instance.
// All write operations are serialized into []byte and are accessible via the entries struct.
//
// Result encoding (Value carries the store.RetCode, Data the payload or the error message):
//   - Create: the id of the new document
//   - Update, Delete: one byte, 1 if the document existed
//   - Apply: one byte found flag followed by the JSON document after the change
func (fsm *DocStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {

	// Nothing to do
	if len(entries) == 0 {
		return entries, nil
	}

	// Stats
	start := time.Now()

	for idx, e := range entries {
		entries[idx].Result = fsm.apply(e.Cmd)
	}

	// Log if the update took long
	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("Statemashine took long to update. Batch updated %d entries, took %.2fms:", len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single serialized command.
func (fsm *DocStateMachine) apply(data []byte) sm.Result {
	if len(data) == 0 {
		return failure(store.RetCInvalidOperation, "empty command ignored")
	}

	// Deserialize the command
	cmd := internal.Command{}
	if err := cmd.Deserialize(data); err != nil {
		return failure(store.RetCInternalError, fmt.Sprintf("failed to deserialize command: %v", err))
	}

	// Check if the db supports the operation
	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return failure(store.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type))
	}
	if !fsm.database.SupportsFeature(feat) {
		return failure(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not suported", cmd.Type))
	}

	// all replicas use the proposer's clock, so every replica writes the same timestamps
	now := time.Unix(0, cmd.Now)

	switch cmd.Type {
	case internal.CommandTCreate:
		fields, err := decodePayload(cmd.Payload)
		if err != nil {
			return failure(store.RetCInvalidOperation, err.Error())
		}
		id, err := docops.Create(fsm.database, cmd.Collection, fields, now)
		if err != nil {
			return errorResult(err)
		}
		return sm.Result{Value: uint64(store.RetCSuccess), Data: []byte(id)}

	case internal.CommandTUpdate:
		partial, err := decodePayload(cmd.Payload)
		if err != nil {
			return failure(store.RetCInvalidOperation, err.Error())
		}
		updated, err := docops.Update(fsm.database, cmd.Collection, cmd.ID, partial, now)
		if err != nil {
			return errorResult(err)
		}
		return sm.Result{Value: uint64(store.RetCSuccess), Data: []byte{flag(updated)}}

	case internal.CommandTDelete:
		deleted, err := docops.Delete(fsm.database, cmd.Collection, cmd.ID)
		if err != nil {
			return errorResult(err)
		}
		return sm.Result{Value: uint64(store.RetCSuccess), Data: []byte{flag(deleted)}}

	case internal.CommandTApply:
		m, err := aggregate.DecodeMutation(cmd.Payload)
		if err != nil {
			return failure(store.RetCInvalidOperation, err.Error())
		}
		d, found, err := docops.Apply(fsm.database, cmd.Collection, cmd.ID, m, now)
		if err != nil {
			return errorResult(err)
		}
		res := []byte{flag(found)}
		if found {
			encoded, err := d.Encode()
			if err != nil {
				return failure(store.RetCInternalError, err.Error())
			}
			res = append(res, encoded...)
		}
		return sm.Result{Value: uint64(store.RetCSuccess), Data: res}

	default:
		return failure(store.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type))
	}
}

// PrepareSnapshot encodes the database into memory. Dragonboat never runs it concurrently
// with Update, so the snapshot reflects exactly the applied log prefix.
func (fsm *DocStateMachine) PrepareSnapshot() (interface{}, error) {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return nil, fmt.Errorf("the used DocDB implemantation does not supports Save() operations")
	}
	var buf bytes.Buffer
	if err := fsm.database.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveSnapshot writes the snapshot prepared by PrepareSnapshot
func (fsm *DocStateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	data, ok := ctx.([]byte)
	if !ok {
		return fmt.Errorf("invalid snapshot context: %T", ctx)
	}
	_, err := writer.Write(data)
	return err
}

// RecoverFromSnapshot replaces the database content with the snapshot.
func (fsm *DocStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("the used DocDB implemantation does not supports Load() operations")
	}
	return fsm.database.Load(r)
}

// Close performs any necessary cleanup.
func (fsm *DocStateMachine) Close() error {
	return fsm.database.Close()
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func failure(code store.RetCode, msg string) sm.Result {
	return sm.Result{Value: uint64(code), Data: []byte(msg)}
}

// errorResult keeps the code of store errors, everything else is an invalid operation
// (e.g. a mutation that could not be applied to the document).
func errorResult(err error) sm.Result {
	if se, ok := err.(*store.Error); ok {
		return failure(se.Code, se.Msg)
	}
	return failure(store.RetCInvalidOperation, err.Error())
}

func decodePayload(payload []byte) (doc.Document, error) {
	if len(payload) == 0 {
		return doc.Document{}, nil
	}
	d, err := doc.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid document payload: %w", err)
	}
	return d, nil
}

func flag(b bool) byte {
	if b {
		return 1
	}
	return 0
}
