package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4/logger"

	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// storeImpl is the concrete implementation of the distributed store.
// It encapsulates a Dragonboat NodeHost which is used to communicate with the state machine.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
	now     func() time.Time
}

// NewDistributedStore creates a new distributed store instance which uses raft consensus to ensure strict linearizability
// across multiple nodes.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	cs := nh.GetNoOPSession(shardID)
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      cs,
		timeout: timeout,
		now:     time.Now,
	}
}

// --------------------------------------------------------------------------
// Internal write and read operations (used by interface methods)
// --------------------------------------------------------------------------

// write serializes a Command and sends it via SyncPropose.
// It returns the result data of the state machine, or a *store.Error if an error occurs.
func (s *storeImpl) write(cmd internal.Command) ([]byte, error) {
	cmd.Now = s.now().UnixNano()
	data := cmd.Serialize()

	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)

		res, err := s.nh.SyncPropose(ctx, s.cs, data)
		cancel()

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncPropose: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(s.timeout / 10)
			continue
		}

		if err != nil {
			return nil, store.NewError(store.RetCInternalError, err.Error())
		}
		if res.Value != uint64(store.RetCSuccess) {
			return nil, store.NewError(store.RetCode(res.Value), string(res.Data))
		}
		return res.Data, nil
	}
	return nil, store.NewError(store.RetCInternalError, "timeout")
}

// read is a generic helper function queries the statemachine
// and attempts to convert the response into the expected type R.
//
// This function uses the SyncRead function (dragenboat) by default to Query the state machine.
// If linearizability is not required, the stale parameter can be set to true to use the faster StaleRead function.
//
// Is the read operation fails due to a system busy error, the function retries up to 5 times.
//
// It returns the response of type R and a error (nil on success).
func read[R any](r *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R
	for i := 0; i < retries; i++ {

		var res interface{}
		var err error

		// Query the standmaschine, use StaleRead if stale is set otherwise use SyncRead (default)
		if stale {
			res, err = r.nh.StaleRead(r.shardID, q)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			res, err = r.nh.SyncRead(ctx, r.shardID, q)
			cancel()
		}

		// Check for system busy errors
		if errors.Is(err, dragonboat.ErrSystemBusy) {
			log.Infof("SyncRead: System busy, retrying (%d/%d)...", i+1, retries)
			time.Sleep(r.timeout / 10)
			continue
		}

		if err != nil {
			var se *store.Error
			if errors.As(err, &se) {
				return zero, se
			}
			return zero, store.NewError(store.RetCInternalError, err.Error())
		}

		// The state machine is expected to return the response in the expected type R.
		casted, ok := res.(R)
		if !ok {
			return zero, store.NewError(store.RetCInternalError,
				fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
		}
		return casted, nil
	}
	return zero, store.NewError(store.RetCInternalError, "timeout")
}

func encodePayload(d doc.Document) ([]byte, error) {
	if d == nil {
		d = doc.Document{}
	}
	data, err := d.Encode()
	if err != nil {
		return nil, store.NewError(store.RetCInvalidOperation, err.Error())
	}
	return data, nil
}

// flagResult decodes the one byte result of Update and Delete.
func flagResult(data []byte) bool {
	return len(data) > 0 && data[0] == 1
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Create(collection string, fields doc.Document) (string, error) {
	payload, err := encodePayload(fields)
	if err != nil {
		return "", err
	}
	res, err := s.write(internal.Command{
		Type:       internal.CommandTCreate,
		Collection: collection,
		Payload:    payload,
	})
	if err != nil {
		return "", err
	}
	return string(res), nil
}

func (s *storeImpl) Update(collection, id string, partial doc.Document) (bool, error) {
	payload, err := encodePayload(partial)
	if err != nil {
		return false, err
	}
	res, err := s.write(internal.Command{
		Type:       internal.CommandTUpdate,
		Collection: collection,
		ID:         id,
		Payload:    payload,
	})
	if err != nil {
		return false, err
	}
	return flagResult(res), nil
}

func (s *storeImpl) Delete(collection, id string) (bool, error) {
	res, err := s.write(internal.Command{
		Type:       internal.CommandTDelete,
		Collection: collection,
		ID:         id,
	})
	if err != nil {
		return false, err
	}
	return flagResult(res), nil
}

func (s *storeImpl) Apply(collection, id string, m aggregate.Mutation) (doc.Document, bool, error) {
	payload, err := m.Encode()
	if err != nil {
		return nil, false, store.NewError(store.RetCInvalidOperation, err.Error())
	}
	res, err := s.write(internal.Command{
		Type:       internal.CommandTApply,
		Collection: collection,
		ID:         id,
		Payload:    payload,
	})
	if err != nil {
		return nil, false, err
	}
	if !flagResult(res) {
		return nil, false, nil
	}
	d, err := doc.Decode(res[1:])
	if err != nil {
		return nil, true, store.NewError(store.RetCInternalError, err.Error())
	}
	return d, true, nil
}

func (s *storeImpl) Read(collection, id string) (doc.Document, bool, error) {
	res, err := read[internal.ReadResult](s, internal.Query{
		Type:       internal.QueryTRead,
		Collection: collection,
		ID:         id,
	}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Document, res.Found, nil
}

func (s *storeImpl) List(collection string, limit, offset int, filters query.Filters) ([]doc.Document, error) {
	return read[[]doc.Document](s, internal.Query{
		Type:       internal.QueryTList,
		Collection: collection,
		Limit:      limit,
		Offset:     offset,
		Filters:    filters,
	}, false)
}

func (s *storeImpl) Search(collection, text string, fields []string, limit int) ([]doc.Document, error) {
	return read[[]doc.Document](s, internal.Query{
		Type:       internal.QueryTSearch,
		Collection: collection,
		Text:       text,
		Fields:     fields,
		Limit:      limit,
	}, false)
}

func (s *storeImpl) Count(collection string, filters query.Filters) (int, error) {
	return read[int](s, internal.Query{
		Type:       internal.QueryTCount,
		Collection: collection,
		Filters:    filters,
	}, false)
}

func (s *storeImpl) Query(collection string, spec query.Spec) (query.Page, error) {
	return read[query.Page](s, internal.Query{
		Type:       internal.QueryTQuery,
		Collection: collection,
		Spec:       spec,
	}, false)
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return read[db.DatabaseInfo](
		s,
		internal.Query{
			Type: internal.QueryTGetDBInfo,
		},
		true, // Note: allow for stale reads
	)
}
