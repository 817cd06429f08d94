package client

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/aggregate"
	"github.com/ValentinKolb/dCommerce/lib/db"
	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/ValentinKolb/dCommerce/rpc/common"
	"github.com/ValentinKolb/dCommerce/rpc/serializer"
	"github.com/ValentinKolb/dCommerce/rpc/transport"
)

// rpcStore implements store.IStore by sending every operation to one shard of a server
type rpcStore struct {
	shardId    uint64
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// NewRPCStore connects the transport and returns a store for the given shard.
// The caller closes the transport when the store is no longer needed.
func NewRPCStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.IStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}
	return &rpcStore{
		shardId:    shardId,
		transport:  transport,
		serializer: serializer,
	}, nil
}

// invoke performs one round trip. A response carrying an error is returned as error,
// a *store.Error if the server reported a store return code.
func (i *rpcStore) invoke(req *common.Message) (*common.Message, error) {
	reqBytes, err := i.serializer.Serialize(*req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.MsgType, err)
	}

	respBytes, err := i.transport.Send(i.shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	var resp common.Message
	if err := i.serializer.Deserialize(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.MsgType, err)
	}

	if err := resp.Error(); err != nil {
		return nil, err
	}
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("unexpected response type %s to %s request", resp.MsgType, req.MsgType)
	}
	return &resp, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Create(collection string, fields doc.Document) (id string, err error) {
	value, err := fields.Encode()
	if err != nil {
		return "", err
	}
	resp, err := i.invoke(common.NewCreateRequest(collection, value))
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (i *rpcStore) Read(collection, id string) (d doc.Document, found bool, err error) {
	resp, err := i.invoke(common.NewReadRequest(collection, id))
	if err != nil || !resp.Ok {
		return nil, false, err
	}
	d, err = doc.Decode(resp.Value)
	if err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	return d, true, nil
}

func (i *rpcStore) Update(collection, id string, partial doc.Document) (updated bool, err error) {
	value, err := partial.Encode()
	if err != nil {
		return false, err
	}
	resp, err := i.invoke(common.NewUpdateRequest(collection, id, value))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Delete(collection, id string) (deleted bool, err error) {
	resp, err := i.invoke(common.NewDeleteRequest(collection, id))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) List(collection string, limit, offset int, filters query.Filters) (docs []doc.Document, err error) {
	params, err := common.EncodeParams(common.ListParams{Filters: filters, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	resp, err := i.invoke(common.NewListRequest(collection, params))
	if err != nil {
		return nil, err
	}
	return doc.DecodeList(resp.Value)
}

func (i *rpcStore) Search(collection, text string, fields []string, limit int) (docs []doc.Document, err error) {
	params, err := common.EncodeParams(common.SearchParams{Text: text, Fields: fields, Limit: limit})
	if err != nil {
		return nil, err
	}
	resp, err := i.invoke(common.NewSearchRequest(collection, params))
	if err != nil {
		return nil, err
	}
	return doc.DecodeList(resp.Value)
}

func (i *rpcStore) Count(collection string, filters query.Filters) (n int, err error) {
	params, err := common.EncodeParams(filters)
	if err != nil {
		return 0, err
	}
	resp, err := i.invoke(common.NewCountRequest(collection, params))
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

func (i *rpcStore) Query(collection string, spec query.Spec) (page query.Page, err error) {
	params, err := common.EncodeParams(spec)
	if err != nil {
		return query.Page{}, err
	}
	resp, err := i.invoke(common.NewQueryRequest(collection, params))
	if err != nil {
		return query.Page{}, err
	}
	if err := json.Unmarshal(resp.Value, &page); err != nil {
		return query.Page{}, fmt.Errorf("decode page: %w", err)
	}
	if page.Results == nil {
		page.Results = []doc.Document{}
	}
	return page, nil
}

func (i *rpcStore) Apply(collection, id string, m aggregate.Mutation) (d doc.Document, found bool, err error) {
	params, err := m.Encode()
	if err != nil {
		return nil, false, err
	}
	resp, err := i.invoke(common.NewApplyRequest(collection, id, params))
	if err != nil || !resp.Ok {
		return nil, false, err
	}
	d, err = doc.Decode(resp.Value)
	if err != nil {
		return nil, false, fmt.Errorf("decode document: %w", err)
	}
	return d, true, nil
}

func (i *rpcStore) GetDBInfo() (info db.DatabaseInfo, err error) {
	resp, err := i.invoke(common.NewInfoRequest())
	if err != nil {
		return db.DatabaseInfo{}, err
	}
	if err := json.Unmarshal(resp.Value, &info); err != nil {
		return db.DatabaseInfo{}, fmt.Errorf("decode database info: %w", err)
	}
	return info, nil
}
