package pipeline

import (
	"context"

	"ahpbridge/pkg/ahp"
)

// Sender posts requests to a broker context. *Router satisfies it.
type Sender interface {
	Send(ctx context.Context, req ahp.Request) *Pending
}

// Client is the detection-side view of the pipeline.
type Client struct {
	sender Sender
}

// NewClient creates a client posting to sender.
func NewClient(sender Sender) *Client {
	return &Client{sender: sender}
}

// Execute requests a call of callURL and waits for its response.
func (c *Client) Execute(ctx context.Context, callURL string) ahp.Response {
	return c.Start(ctx, callURL).Wait(ctx)
}

// Start requests a call of callURL without waiting.
func (c *Client) Start(ctx context.Context, callURL string) *Pending {
	return c.sender.Send(ctx, ahp.Request{Action: ahp.ActionExecuteCall, URL: callURL})
}
