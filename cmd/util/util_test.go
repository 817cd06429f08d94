package util

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ValentinKolb/dCommerce/lib/doc"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("  short   text "))
}

func TestParseDocument(t *testing.T) {
	d, err := ParseDocument(`{"name": "Desk Lamp", "price": 39.5}`, nil)
	require.NoError(t, err)
	assert.True(t, d.Equal(doc.Document{"name": doc.Str("Desk Lamp"), "price": doc.Num(39.5)}))

	d, err = ParseDocument("-", strings.NewReader(`{"sku": "DL-1"}`))
	require.NoError(t, err)
	sku, _ := d.GetString("sku")
	assert.Equal(t, "DL-1", sku)

	_, err = ParseDocument("[1, 2]", nil)
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc.Document{"id": doc.Str("PROD001")}))
	assert.Equal(t, "{\n  \"id\": \"PROD001\"\n}\n", buf.String())
}

func TestWrapStringLongWord(t *testing.T) {
	long := strings.Repeat("x", Wrap+5)
	assert.Equal(t, "a\n"+long+"\nb", WrapString("a "+long+" b"))
}

func TestFactorySelection(t *testing.T) {
	viper.Set("serializer", "binary")
	viper.Set("transport", "carrier-pigeon")
	t.Cleanup(viper.Reset)

	s, err := GetSerializer()
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = GetTransport()
	assert.ErrorContains(t, err, `invalid transport "carrier-pigeon" (expected one of: http, tcp, unix)`)
}
