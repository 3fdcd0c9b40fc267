package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mini-jsonrpc/client"
	"mini-jsonrpc/message"
	"strings"
)

// batchEntry is one element of the BATCH argument.
type batchEntry struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	Notify bool            `json:"notify,omitempty"`
}

// batchOutput is one element of the printed result, in request order.
type batchOutput struct {
	Method string          `json:"method"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  any             `json:"error,omitempty"`
	Notify bool            `json:"notify,omitempty"`
}

type BatchCommand struct {
	base
}

func (c *BatchCommand) Run(args []string) int {
	f := c.flagSet("batch")
	if err := f.Parse(args); err != nil {
		c.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return 1
	}
	if f.NArg() != 1 {
		c.Ui.Error(fmt.Sprintf("expected exactly 1 argument (%d given)", f.NArg()))
		return 1
	}

	raw, err := readArg(f.Arg(0))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	entries, err := parseBatch(raw)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	return c.run(func(ctx context.Context, cl *client.Client) error {
		reqs := make([]*message.Request, len(entries))
		for i, e := range entries {
			var params any
			if len(e.Params) > 0 {
				params = e.Params
			}
			if e.Notify {
				reqs[i] = message.NewNotification(e.Method, params)
			} else {
				reqs[i] = cl.Request(e.Method, params)
			}
		}

		results, err := cl.Batch(ctx, reqs...)
		if results == nil {
			return err
		}
		out := make([]batchOutput, len(results))
		for i, res := range results {
			out[i] = batchOutput{Method: entries[i].Method, Result: res.Result, Notify: entries[i].Notify}
			if res.Err != nil {
				out[i].Result = nil
				out[i].Error = errorValue(res.Err)
			}
		}
		if perr := c.printJSON(out); perr != nil {
			return perr
		}
		return err
	})
}

func parseBatch(raw string) ([]batchEntry, error) {
	var entries []batchEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("batch must be a JSON array of {\"method\", \"params\", \"notify\"}: %w", err)
	}
	for i, e := range entries {
		if e.Method == "" {
			return nil, fmt.Errorf("batch entry %d has no method", i)
		}
		if _, err := parseParams(string(e.Params)); err != nil {
			return nil, fmt.Errorf("batch entry %d: %w", i, err)
		}
	}
	return entries, nil
}

// errorValue prints remote errors as their JSON-RPC error object and anything else as text.
func errorValue(err error) any {
	var rpcErr *message.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return err.Error()
}

func (c *BatchCommand) Help() string {
	helpText := `
Usage: rpccall batch [options] BATCH

  Sends every entry of BATCH as one JSON-RPC batch and prints the results
  in request order. BATCH is a JSON array such as

    [{"method": "add", "params": [1, 2]}, {"method": "log", "notify": true}]

  or @FILE to read it from a file.

` + helpForFlags(c.flagSet("batch"))
	return strings.TrimSpace(helpText)
}

func (c *BatchCommand) Synopsis() string {
	return "Send a batch of calls and notifications"
}
