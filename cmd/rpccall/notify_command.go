package main

import (
	"context"
	"fmt"
	"mini-jsonrpc/client"
	"strings"
)

type NotifyCommand struct {
	base
}

func (c *NotifyCommand) Run(args []string) int {
	f := c.flagSet("notify")
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
		return cl.Notify(ctx, method, params)
	})
}

func (c *NotifyCommand) Help() string {
	helpText := `
Usage: rpccall notify [options] METHOD [PARAMS]

  Sends METHOD as a notification. Nothing is printed on success.

` + helpForFlags(c.flagSet("notify"))
	return strings.TrimSpace(helpText)
}

func (c *NotifyCommand) Synopsis() string {
	return "Send a notification"
}
