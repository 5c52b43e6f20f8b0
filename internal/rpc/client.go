package rpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/funvibe/walc/internal/ast"
	"github.com/funvibe/walc/internal/codec"
)

// RemoteError is a failure the engine reported in a reply's error field.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Client calls a remote walc.v1.Engine.
type Client struct {
	conn *grpc.ClientConn
	own  bool
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, own: true}, nil
}

// NewClient wraps an existing connection; Close leaves it open.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{conn: conn}
}

// Close closes the connection if the client opened it.
func (c *Client) Close() error {
	if !c.own || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Evaluate runs tree on the remote tree-walk evaluator.
func (c *Client) Evaluate(ctx context.Context, tree ast.Node) (float64, error) {
	data, err := codec.Encode(codec.JSON, tree)
	if err != nil {
		return 0, err
	}
	out, err := c.invoke(ctx, "Evaluate", map[string]interface{}{"tree": string(data)})
	if err != nil {
		return 0, err
	}
	return out.GetFieldByName("value").(float64), nil
}

// Generate translates tree to a byte stream remotely.
func (c *Client) Generate(ctx context.Context, tree ast.Node) ([]byte, []string, error) {
	data, err := codec.Encode(codec.JSON, tree)
	if err != nil {
		return nil, nil, err
	}
	out, err := c.invoke(ctx, "Generate", map[string]interface{}{"tree": string(data)})
	if err != nil {
		return nil, nil, err
	}
	code, _ := out.GetFieldByName("code").([]byte)
	return code, stringList(out.GetFieldByName("names")), nil
}

// Interpret runs a byte stream on the remote virtual machine.
func (c *Client) Interpret(ctx context.Context, code []byte, names []string) (float64, error) {
	fields := map[string]interface{}{"code": code}
	if len(names) > 0 {
		fields["names"] = names
	}
	out, err := c.invoke(ctx, "Interpret", fields)
	if err != nil {
		return 0, err
	}
	return out.GetFieldByName("value").(float64), nil
}

func (c *Client) invoke(ctx context.Context, name string, fields map[string]interface{}) (*dynamic.Message, error) {
	md, err := method(name)
	if err != nil {
		return nil, err
	}
	req := dynamic.NewMessage(md.GetInputType())
	for field, v := range fields {
		if err := req.TrySetFieldByName(field, v); err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
	}
	resp := dynamic.NewMessage(md.GetOutputType())
	if err := c.conn.Invoke(ctx, fullMethod(name), req, resp); err != nil {
		return nil, fmt.Errorf("RPC failed: %w", err)
	}
	if msg, _ := resp.GetFieldByName("error").(string); msg != "" {
		return nil, &RemoteError{Method: name, Message: msg}
	}
	return resp, nil
}

// IsRemote reports whether err was reported by the engine rather than the
// transport.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
