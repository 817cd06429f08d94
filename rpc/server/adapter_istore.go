package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/rpc/common"
)

// IRPCServerAdapter answers one request message against the store of a shard.
// Failures are reported inside the returned message, never as a nil response.
type IRPCServerAdapter interface {
	Handle(req *common.Message, store store.IStore) (resp *common.Message)
}

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Message, s store.IStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTCreate:
		d, err := decodeDocument(req.Value)
		if err != nil {
			return common.NewCreateResponse("", err)
		}
		id, err := s.Create(req.Collection, d)
		return common.NewCreateResponse(id, err)

	case common.MsgTRead:
		d, ok, err := s.Read(req.Collection, req.ID)
		value, err := encodeIf(ok && err == nil, d, err)
		return common.NewReadResponse(value, ok, err)

	case common.MsgTUpdate:
		partial, err := decodeDocument(req.Value)
		if err != nil {
			return common.NewUpdateResponse(false, err)
		}
		ok, err := s.Update(req.Collection, req.ID, partial)
		return common.NewUpdateResponse(ok, err)

	case common.MsgTDelete:
		ok, err := s.Delete(req.Collection, req.ID)
		return common.NewDeleteResponse(ok, err)

	case common.MsgTList:
		var p common.ListParams
		if err := common.DecodeParams(req.Params, &p); err != nil {
			return common.NewListResponse(nil, err)
		}
		docs, err := s.List(req.Collection, p.Limit, p.Offset, p.Filters)
		value, err := encodeIf(err == nil, docs, err)
		return common.NewListResponse(value, err)

	case common.MsgTSearch:
		var p common.SearchParams
		if err := common.DecodeParams(req.Params, &p); err != nil {
			return common.NewSearchResponse(nil, err)
		}
		docs, err := s.Search(req.Collection, p.Text, p.Fields, p.Limit)
		value, err := encodeIf(err == nil, docs, err)
		return common.NewSearchResponse(value, err)

	case common.MsgTCount:
		var filters query.Filters
		if err := common.DecodeParams(req.Params, &filters); err != nil {
			return common.NewCountResponse(0, err)
		}
		n, err := s.Count(req.Collection, filters)
		return common.NewCountResponse(n, err)

	case common.MsgTQuery:
		var spec query.Spec
		if err := common.DecodeParams(req.Params, &spec); err != nil {
			return common.NewQueryResponse(nil, err)
		}
		page, err := s.Query(req.Collection, spec)
		value, err := encodeIf(err == nil, page, err)
		return common.NewQueryResponse(value, err)

	case common.MsgTApply:
		m, err := aggregate.DecodeMutation(req.Params)
		if err != nil {
			return common.NewApplyResponse(nil, false, invalid(err))
		}
		d, ok, err := s.Apply(req.Collection, req.ID, m)
		value, err := encodeIf(ok && err == nil, d, err)
		return common.NewApplyResponse(value, ok, err)

	case common.MsgTInfo:
		info, err := s.GetDBInfo()
		value, err := encodeIf(err == nil, info, err)
		return common.NewInfoResponse(value, err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC IStoreAdapter - Unsuported message type: %s", req.MsgType),
		)
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// decodeDocument decodes a JSON document, a malformed one is an invalid operation
func decodeDocument(data []byte) (doc.Document, error) {
	d, err := doc.Decode(data)
	if err != nil {
		return nil, invalid(err)
	}
	return d, nil
}

// encodeIf JSON encodes v if cond holds, otherwise it passes err through
func encodeIf(cond bool, v any, err error) ([]byte, error) {
	if !cond {
		return nil, err
	}
	b, mErr := json.Marshal(v)
	if mErr != nil {
		return nil, store.NewError(store.RetCInternalError, mErr.Error())
	}
	return b, nil
}

func invalid(err error) error {
	return store.NewError(store.RetCInvalidOperation, err.Error())
}
