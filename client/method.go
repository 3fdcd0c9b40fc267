package client

import (
	"context"
	"encoding/json"
	"mini-jsonrpc/message"
)

// Method is a handle on one remote method, so call sites read like local calls:
//
//	add := c.Method("add")
//	sum, err := add.Call(ctx, 2, 3)
type Method struct {
	client *Client
	name   string
}

// Method returns a proxy for the remote method name.
func (c *Client) Method(name string) *Method {
	return &Method{client: c, name: name}
}

func (m *Method) Name() string {
	return m.name
}

// Call invokes the method with positional arguments.
func (m *Method) Call(ctx context.Context, args ...any) (json.RawMessage, error) {
	return m.client.Call(ctx, m.name, positional(args))
}

// CallNamed invokes the method with keyed arguments (a map or a struct).
func (m *Method) CallNamed(ctx context.Context, params any) (json.RawMessage, error) {
	return m.client.Call(ctx, m.name, params)
}

// CallInto invokes the method with positional arguments and decodes the result into out.
func (m *Method) CallInto(ctx context.Context, out any, args ...any) error {
	return m.client.CallInto(ctx, out, m.name, positional(args))
}

// Notify sends the method as a notification with positional arguments.
func (m *Method) Notify(ctx context.Context, args ...any) error {
	return m.client.Notify(ctx, m.name, positional(args))
}

// Request builds a call for use in a batch.
func (m *Method) Request(args ...any) *message.Request {
	return m.client.Request(m.name, positional(args))
}

// Notification builds a notification for use in a batch.
func (m *Method) Notification(args ...any) *message.Request {
	return message.NewNotification(m.name, positional(args))
}

// positional leaves params out entirely when there are no arguments.
func positional(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args
}
