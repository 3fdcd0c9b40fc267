package codec

import (
	"encoding/json"
	"mini-jsonrpc/message"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONCodecEncodesEnvelope(t *testing.T) {
	c := Default()
	assert.Equal(t, "application/json", c.ContentType())

	req := &message.Request{ID: message.StringID("1"), Method: "add", Params: []any{2, 3}}
	data, err := c.Encode(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"1","method":"add","params":[2,3]}`, string(data))
}

func TestJSONCodecDecode(t *testing.T) {
	var reply struct {
		Result int `json:"result"`
	}
	require.NoError(t, Default().Decode([]byte(`{"result":30}`), &reply))
	assert.Equal(t, 30, reply.Result)
}

func TestJSONCodecUseNumber(t *testing.T) {
	c := &JSONCodec{UseNumber: true}

	var v any
	require.NoError(t, c.Decode([]byte(`9007199254740993`), &v))
	assert.Equal(t, json.Number("9007199254740993"), v)
}
