package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCommerce/lib/query"
	"github.com/ValentinKolb/dCommerce/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Collection string `json:"collection,omitempty"` // Used for: all document operations except Info
	ID         string `json:"id,omitempty"`         // Used for: Read, Update, Delete, Apply (request), Create (response)
	Value      []byte `json:"value,omitempty"`      // JSON document(s): Create, Update (request), Read, List, Search, Query, Apply, Info (response)
	Params     []byte `json:"params,omitempty"`     // JSON operation parameters: List, Search, Count, Query, Apply (request)

	// Response only fields
	Count int64  `json:"count,omitempty"` // Used for: Count responses
	Ok    bool   `json:"ok,omitempty"`    // Used for: Read, Update, Delete, Apply responses
	Err   string `json:"err,omitempty"`   // Empty if no error, otherwise contains the error message
	Code  uint64 `json:"code,omitempty"`  // store.RetCode of Err if the error was a *store.Error (only sent together with Err)

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// Error converts the error fields of a response back into an error.
// A response carrying a store return code becomes a *store.Error, so callers
// can inspect the code with errors.As on both sides of the wire.
func (m *Message) Error() error {
	if m.Err == "" {
		return nil
	}
	if m.Code != 0 {
		return store.NewError(store.RetCode(m.Code), m.Err)
	}
	return errors.New(m.Err)
}

// setErr stores err in the message (no-op for nil).
func (m *Message) setErr(err error) {
	if err == nil {
		return
	}
	var se *store.Error
	if errors.As(err, &se) {
		m.Err = se.Msg
		m.Code = uint64(se.Code)
		return
	}
	m.Err = err.Error()
}

// --------------------------------------------------------------------------
// Request Parameters
// --------------------------------------------------------------------------

// ListParams are the parameters of a List request.
type ListParams struct {
	Filters query.Filters `json:"filters,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	Offset  int           `json:"offset,omitempty"`
}

// SearchParams are the parameters of a Search request.
type SearchParams struct {
	Text   string   `json:"text"`
	Fields []string `json:"fields,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// EncodeParams encodes operation parameters for the Params field.
func EncodeParams(p any) ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return b, nil
}

// DecodeParams decodes the Params field into p. Empty params leave p untouched.
func DecodeParams(data []byte, p any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCreateRequest creates a new Create request, value is the JSON document
func NewCreateRequest(collection string, value []byte) *Message {
	return &Message{
		MsgType:    MsgTCreate,
		Collection: collection,
		Value:      value,
	}
}

// NewCreateResponse creates a new Create response carrying the id of the new document
func NewCreateResponse(id string, err error) *Message {
	msg := &Message{
		MsgType: MsgTCreate,
		ID:      id,
	}
	msg.setErr(err)
	return msg
}

// NewReadRequest creates a new Read request
func NewReadRequest(collection, id string) *Message {
	return &Message{
		MsgType:    MsgTRead,
		Collection: collection,
		ID:         id,
	}
}

// NewReadResponse creates a new Read response
func NewReadResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTRead,
		Value:   value,
		Ok:      ok,
	}
	msg.setErr(err)
	return msg
}

// NewUpdateRequest creates a new Update request, value is the JSON partial document
func NewUpdateRequest(collection, id string, value []byte) *Message {
	return &Message{
		MsgType:    MsgTUpdate,
		Collection: collection,
		ID:         id,
		Value:      value,
	}
}

// NewUpdateResponse creates a new Update response
func NewUpdateResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTUpdate,
		Ok:      ok,
	}
	msg.setErr(err)
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(collection, id string) *Message {
	return &Message{
		MsgType:    MsgTDelete,
		Collection: collection,
		ID:         id,
	}
}

// NewDeleteResponse creates a new Delete response
func NewDeleteResponse(ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTDelete,
		Ok:      ok,
	}
	msg.setErr(err)
	return msg
}

// NewListRequest creates a new List request, params are encoded ListParams
func NewListRequest(collection string, params []byte) *Message {
	return &Message{
		MsgType:    MsgTList,
		Collection: collection,
		Params:     params,
	}
}

// NewListResponse creates a new List response, value is the JSON document list
func NewListResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTList,
		Value:   value,
	}
	msg.setErr(err)
	return msg
}

// NewSearchRequest creates a new Search request, params are encoded SearchParams
func NewSearchRequest(collection string, params []byte) *Message {
	return &Message{
		MsgType:    MsgTSearch,
		Collection: collection,
		Params:     params,
	}
}

// NewSearchResponse creates a new Search response, value is the JSON document list
func NewSearchResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTSearch,
		Value:   value,
	}
	msg.setErr(err)
	return msg
}

// NewCountRequest creates a new Count request, params are encoded query.Filters
func NewCountRequest(collection string, params []byte) *Message {
	return &Message{
		MsgType:    MsgTCount,
		Collection: collection,
		Params:     params,
	}
}

// NewCountResponse creates a new Count response
func NewCountResponse(n int, err error) *Message {
	msg := &Message{
		MsgType: MsgTCount,
		Count:   int64(n),
	}
	msg.setErr(err)
	return msg
}

// NewQueryRequest creates a new Query request, params are an encoded query.Spec
func NewQueryRequest(collection string, params []byte) *Message {
	return &Message{
		MsgType:    MsgTQuery,
		Collection: collection,
		Params:     params,
	}
}

// NewQueryResponse creates a new Query response, value is the JSON query.Page
func NewQueryResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTQuery,
		Value:   value,
	}
	msg.setErr(err)
	return msg
}

// NewApplyRequest creates a new Apply request, params are an encoded aggregate.Mutation
func NewApplyRequest(collection, id string, params []byte) *Message {
	return &Message{
		MsgType:    MsgTApply,
		Collection: collection,
		ID:         id,
		Params:     params,
	}
}

// NewApplyResponse creates a new Apply response, value is the JSON document after the mutation
func NewApplyResponse(value []byte, ok bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTApply,
		Value:   value,
		Ok:      ok,
	}
	msg.setErr(err)
	return msg
}

// NewInfoRequest creates a new Info request
func NewInfoRequest() *Message {
	return &Message{
		MsgType: MsgTInfo,
	}
}

// NewInfoResponse creates a new Info response, value is the JSON db.DatabaseInfo
func NewInfoResponse(value []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTInfo,
		Value:   value,
	}
	msg.setErr(err)
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	msg.setErr(err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var msgTypeNames = map[MessageType]string{
	MsgTSuccess: "success",
	MsgTError:   "error",
	MsgTCreate:  "create",
	MsgTRead:    "read",
	MsgTUpdate:  "update",
	MsgTDelete:  "delete",
	MsgTList:    "list",
	MsgTSearch:  "search",
	MsgTCount:   "count",
	MsgTQuery:   "query",
	MsgTApply:   "apply",
	MsgTInfo:    "info",
	MsgTCustom:  "custom",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	for msgType, name := range msgTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore operations

	MsgTCreate // Create a document
	MsgTRead   // Read a document by id
	MsgTUpdate // Merge a partial document
	MsgTDelete // Delete a document
	MsgTList   // List documents matching filters
	MsgTSearch // Free-text search
	MsgTCount  // Count documents matching filters
	MsgTQuery  // Filter, search, sort and page
	MsgTApply  // Run a compound mutation on one document
	MsgTInfo   // Database metadata

	// Custom operations

	MsgTCustom // Custom operation type
)
