package grpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	grpcdelivery "github.com/Xausdorf/payout-hub/internal/delivery/grpc"
)

type Client struct {
	client grpcdelivery.PayoutServiceClient
	conn   *grpc.ClientConn
	token  string
}

// NewClient connects to the payout service at addr. token is sent as a
// bearer token on every call.
func NewClient(addr, token string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		client: grpcdelivery.NewPayoutServiceClient(conn),
		conn:   conn,
		token:  token,
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) GetPayout(ctx context.Context, id string) (map[string]any, error) {
	resp, err := c.client.GetPayout(c.authorize(ctx), wrapperspb.String(id))
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

// SubmitPayout sends req, shaped like the HTTP request body, plus the
// optional idempotencyKey and wait fields.
func (c *Client) SubmitPayout(ctx context.Context, req map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.SubmitPayout(c.authorize(ctx), in)
	if err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

func (c *Client) authorize(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}
