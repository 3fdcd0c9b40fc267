package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// httpConfig starts a peer answering with reply and writes a config file pointing at it.
func httpConfig(t *testing.T, reply func(body []byte) string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		out := reply(body)
		if out == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Write([]byte(out))
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "client.yaml")
	doc := "transport:\n  kind: http\n  url: " + srv.URL + "\nclient:\n  ids: sequence\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func TestCallCommand(t *testing.T) {
	path := httpConfig(t, func(body []byte) string {
		return `{"jsonrpc":"2.0","id":"1","result":5}`
	})
	ui := cli.NewMockUi()
	cmd := &CallCommand{base: base{Ui: ui}}

	code := cmd.Run([]string{"-config", path, "add", "[2, 3]"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.Equal(t, "5\n", ui.OutputWriter.String())
}

func TestCallCommandRemoteError(t *testing.T) {
	path := httpConfig(t, func(body []byte) string {
		return `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"Method not found"}}`
	})
	ui := cli.NewMockUi()
	cmd := &CallCommand{base: base{Ui: ui}}

	code := cmd.Run([]string{"-config", path, "divide"})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), `"code":-32601`)
}

func TestCallCommandRejectsBadParams(t *testing.T) {
	ui := cli.NewMockUi()
	cmd := &CallCommand{base: base{Ui: ui}}

	assert.Equal(t, 1, cmd.Run([]string{"add", "42"}))
	assert.Contains(t, ui.ErrorWriter.String(), "JSON array or object")
}

func TestNotifyCommand(t *testing.T) {
	got := make(chan []byte, 1)
	path := httpConfig(t, func(body []byte) string {
		got <- body
		return ""
	})
	ui := cli.NewMockUi()
	cmd := &NotifyCommand{base: base{Ui: ui}}

	code := cmd.Run([]string{"-config", path, "log", `{"msg":"hi"}`})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"log","params":{"msg":"hi"}}`, string(<-got))
	assert.Empty(t, ui.OutputWriter.String())
}

func TestBatchCommand(t *testing.T) {
	path := httpConfig(t, func(body []byte) string {
		return `[
			{"jsonrpc":"2.0","id":"2","error":{"code":-32601,"message":"Method not found"}},
			{"jsonrpc":"2.0","id":"1","result":3}
		]`
	})
	ui := cli.NewMockUi()
	cmd := &BatchCommand{base: base{Ui: ui}}

	batch := `[{"method":"add","params":[1,2]},{"method":"log","notify":true},{"method":"divide","params":[1,0]}]`
	code := cmd.Run([]string{"-config", path, batch})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &out))
	require.Len(t, out, 3)
	assert.EqualValues(t, 3, out[0]["result"])
	assert.Equal(t, true, out[1]["notify"])
	assert.EqualValues(t, -32601, out[2]["error"].(map[string]any)["code"])
}

func TestParseBatch(t *testing.T) {
	entries, err := parseBatch(`[{"method":"a"},{"method":"b","params":{"x":1},"notify":true}]`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Notify)

	_, err = parseBatch(`[{"params":[1]}]`)
	assert.Error(t, err)
	_, err = parseBatch(`[{"method":"a","params":7}]`)
	assert.Error(t, err)
	_, err = parseBatch(`{"method":"a"}`)
	assert.Error(t, err)
}

func TestReadArgFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1,2]`), 0o600))

	got, err := readArg("@" + path)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, got)

	got, err = readArg(`[3]`)
	require.NoError(t, err)
	assert.Equal(t, `[3]`, got)
}
