package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mini-jsonrpc/client"
	"mini-jsonrpc/config"
	"mini-jsonrpc/message"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/cli"
	"go.uber.org/zap"
)

// base holds what every command shares: the UI, the config flag and the deadline.
type base struct {
	Ui cli.Ui

	configPath string
	timeout    time.Duration
}

func (b *base) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.StringVar(&b.configPath, "config", "", "path to the YAML client config (default: newline-delimited JSON over stdio)")
	fs.DurationVar(&b.timeout, "timeout", 30*time.Second, "overall deadline for the command")
	return fs
}

func helpForFlags(fs *flag.FlagSet) string {
	buf := &strings.Builder{}
	buf.WriteString("Options:\n\n")

	w := fs.Output()
	defer fs.SetOutput(w)
	fs.SetOutput(buf)
	fs.PrintDefaults()

	return buf.String()
}

func (b *base) loadConfig() (*config.Config, error) {
	if b.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(b.configPath)
}

// run connects, hands the client to fn and closes everything afterwards.
func (b *base) run(fn func(ctx context.Context, c *client.Client) error) int {
	cfg, err := b.loadConfig()
	if err != nil {
		b.Ui.Error(err.Error())
		return 1
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		b.Ui.Error(fmt.Sprintf("Error creating logger: %s", err))
		return 1
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	c, err := cfg.Dial(ctx, logger)
	if err != nil {
		b.Ui.Error(err.Error())
		return 1
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("closing client", zap.Error(err))
		}
	}()

	if err := fn(ctx, c); err != nil {
		b.reportError(err)
		return 1
	}
	return 0
}

func (b *base) reportError(err error) {
	var rpcErr *message.Error
	if errors.As(err, &rpcErr) {
		out, _ := json.Marshal(rpcErr)
		b.Ui.Error(string(out))
		return
	}
	b.Ui.Error(err.Error())
}

// parseParams accepts a JSON array, a JSON object, or nothing.
func parseParams(arg string) (any, error) {
	raw := bytes.TrimSpace([]byte(arg))
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] != '[' && raw[0] != '{' {
		return nil, fmt.Errorf("params must be a JSON array or object, got %q", arg)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("params are not valid JSON: %q", arg)
	}
	return json.RawMessage(raw), nil
}

// readArg returns arg itself, or the contents of the file it names when it starts with "@".
func readArg(arg string) (string, error) {
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return arg, nil
}

func (b *base) printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b.Ui.Output(string(out))
	return nil
}
