// Package ticketing adapts the external ticketing system. Ticket IDs are
// durable opaque identifiers; the manager never interprets them.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// CreateRequest describes the ticket to open.
type CreateRequest struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	OwnerUID      string `json:"owner_uid"`
	CustomerUID   string `json:"customer_uid"`
	CustomerEmail string `json:"customer_email"`
}

// Ticket is the pair of identifiers the ticketing system assigns. The two
// are distinct and both are needed to reference the ticket later.
type Ticket struct {
	TicketID string `json:"ticket_id"`
	TicketNo string `json:"ticket_no"`
}

// Ticketing creates tickets. Implementations return nil without error when
// the ticketing system declines the request.
type Ticketing interface {
	CreateTicket(ctx context.Context, req CreateRequest) (*Ticket, error)
}

// Client is an HTTP JSON ticketing client.
type Client struct {
	base   string
	client *http.Client
}

// NewClient returns a ticketing client for the given base URL.
func NewClient(base string) *Client {
	return &Client{
		base:   base,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateTicket(ctx context.Context, req CreateRequest) (*Ticket, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("ticketing: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/tickets", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ticketing: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ticketing: create ticket: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ticketing: create ticket: unexpected status %d", resp.StatusCode)
	}
	var ticket Ticket
	if err := json.NewDecoder(resp.Body).Decode(&ticket); err != nil {
		return nil, fmt.Errorf("ticketing: decode response: %w", err)
	}
	if ticket.TicketID == "" {
		return nil, nil
	}
	return &ticket, nil
}
