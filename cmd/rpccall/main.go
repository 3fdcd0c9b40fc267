// Command rpccall sends JSON-RPC 2.0 calls, notifications and batches to a peer
// described by a YAML config file.
package main

import (
	"os"

	"github.com/mitchellh/cli"
)

func main() {
	c := &cli.CLI{
		Name:    "rpccall",
		Version: "0.1.0",
		Args:    os.Args[1:],
	}

	ui := &cli.ColoredUi{
		ErrorColor: cli.UiColorRed,
		WarnColor:  cli.UiColorYellow,
		Ui: &cli.BasicUi{
			Writer:      os.Stdout,
			Reader:      os.Stdin,
			ErrorWriter: os.Stderr,
		},
	}

	c.Commands = map[string]cli.CommandFactory{
		"call": func() (cli.Command, error) {
			return &CallCommand{base: base{Ui: ui}}, nil
		},
		"notify": func() (cli.Command, error) {
			return &NotifyCommand{base: base{Ui: ui}}, nil
		},
		"batch": func() (cli.Command, error) {
			return &BatchCommand{base: base{Ui: ui}}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		ui.Error("Error: " + err.Error())
	}

	os.Exit(exitStatus)
}
