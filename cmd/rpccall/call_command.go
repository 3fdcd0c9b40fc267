package main

import (
	"context"
	"fmt"
	"mini-jsonrpc/client"
	"strings"
)

type CallCommand struct {
	base
}

func (c *CallCommand) Run(args []string) int {
	f := c.flagSet("call")
	if err := f.Parse(args); err != nil {
		c.Ui.Error(fmt.Sprintf("Error parsing command-line flags: %s", err))
		return 1
	}
	if f.NArg() < 1 || f.NArg() > 2 {
		c.Ui.Error(fmt.Sprintf("expected METHOD [PARAMS] (%d arguments given)", f.NArg()))
		return 1
	}

	method := f.Arg(0)
	raw, err := readArg(f.Arg(1))
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	params, err := parseParams(raw)
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}

	return c.run(func(ctx context.Context, cl *client.Client) error {
		result, err := cl.Call(ctx, method, params)
		if err != nil {
			return err
		}
		return c.printJSON(result)
	})
}

func (c *CallCommand) Help() string {
	helpText := `
Usage: rpccall call [options] METHOD [PARAMS]

  Calls METHOD and prints its result. PARAMS is a JSON array or object,
  or @FILE to read it from a file.

` + helpForFlags(c.flagSet("call"))
	return strings.TrimSpace(helpText)
}

func (c *CallCommand) Synopsis() string {
	return "Call a remote method and print its result"
}
