package serializer

import "github.com/ValentinKolb/dCommerce/rpc/common"

// IRPCSerializer converts rpc messages to and from their wire representation.
// Implementations are stateless and safe for concurrent use.
type IRPCSerializer interface {
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize overwrites every field of msg
	Deserialize(b []byte, msg *common.Message) error
}
