// Package serializer encodes common.Message values for the rpc transports.
//
// Three formats are available and selected with the --serializer flag:
//
//   - binary: a compact hand written layout (type byte, presence flags, length
//     prefixed fields). It is the fastest and smallest and the default for the
//     tcp and unix transports.
//   - json: readable on the wire, handy with the http transport and curl.
//   - gob: encoding/gob, mostly kept for comparison in the benchmarks.
//
// Client and server must use the same format; there is no negotiation.
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(common.Message{MsgType: common.MsgTRead, Collection: "carts", ID: "CART001"})
package serializer
