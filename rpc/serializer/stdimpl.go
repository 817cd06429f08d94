package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/ValentinKolb/dCommerce/rpc/common"
)

// encoder and decoder are satisfied by the gob and json stream codecs
type (
	encoder interface{ Encode(any) error }
	decoder interface{ Decode(any) error }
)

// streamSerializer adapts a stream codec of the standard library to IRPCSerializer
type streamSerializer struct {
	newEncoder func(*bytes.Buffer) encoder
	newDecoder func(*bytes.Reader) decoder
}

// NewJSONSerializer encodes messages as JSON objects (byte fields become base64 strings)
func NewJSONSerializer() IRPCSerializer {
	return streamSerializer{
		newEncoder: func(b *bytes.Buffer) encoder { return json.NewEncoder(b) },
		newDecoder: func(r *bytes.Reader) decoder { return json.NewDecoder(r) },
	}
}

// NewGOBSerializer encodes messages with encoding/gob. Every message carries the type
// description, so it is the largest and slowest of the formats.
func NewGOBSerializer() IRPCSerializer {
	return streamSerializer{
		newEncoder: func(b *bytes.Buffer) encoder { return gob.NewEncoder(b) },
		newDecoder: func(r *bytes.Reader) decoder { return gob.NewDecoder(r) },
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (s streamSerializer) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.newEncoder(&buf).Encode(msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s streamSerializer) Deserialize(b []byte, msg *common.Message) error {
	// neither codec clears fields that are absent in the input
	*msg = common.Message{}
	return s.newDecoder(bytes.NewReader(b)).Decode(msg)
}
