package serializer

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/dCommerce/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	product := []byte(`{"id":"PROD001","name":"Wireless Bluetooth Headphones","sku":"WBH001","price":199.99,` +
		`"category_id":"CAT001","brand":"TechBrand","inventory_quantity":150}`)

	list := []byte("[" + strings.Repeat(string(product)+",", 49) + string(product) + "]")

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"ReadRequest": {
			MsgType:    common.MsgTRead,
			Collection: "products",
			ID:         "PROD001",
		},
		"ReadResponse": {
			MsgType: common.MsgTRead,
			Value:   product,
			Ok:      true,
		},
		"CreateRequest": {
			MsgType:    common.MsgTCreate,
			Collection: "products",
			Value:      product,
		},
		"QueryRequest": {
			MsgType:    common.MsgTQuery,
			Collection: "products",
			Params:     []byte(`{"filters":{"brand":"TechBrand"},"search":{"text":"wire"},"orderBy":[{"field":"price"}],"top":20}`),
		},
		"ListResponse50": {
			MsgType: common.MsgTList,
			Value:   list,
		},
		"LargeValue": {
			MsgType:    common.MsgTCreate,
			Collection: "blobs",
			Value:      make([]byte, 1024*16), // 16KB of data
		},
		"CompleteMessage": {
			MsgType:    common.MsgTApply,
			Collection: "carts",
			ID:         "CART001",
			Value:      product,
			Params:     []byte(`{"type":"apply_discount","discount_code":"SAVE10"}`),
			Count:      10000,
			Ok:         true,
			Err:        "This is a test error message",
			Code:       3,
			Meta:       []byte("test-meta-data-for-benchmarking"),
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
