package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/votedesk/console/internal/models"
)

// Stats handles GET /admin/stats.
func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	var out models.Stats
	err := c.do(ctx, call{op: "get_stats", method: http.MethodGet, path: "/admin/stats", admin: true}, &out)
	return out, err
}

// CreateTickets handles POST /admin/tickets?count=N.
func (c *Client) CreateTickets(ctx context.Context, count int) (models.TicketBatch, error) {
	if count < 1 {
		return models.TicketBatch{}, fmt.Errorf("ticket count must be positive, got %d", count)
	}
	var out models.TicketBatch
	err := c.do(ctx, call{
		op:     "create_tickets",
		method: http.MethodPost,
		path:   fmt.Sprintf("/admin/tickets?count=%d", count),
		admin:  true,
	}, &out)
	if err != nil {
		return models.TicketBatch{}, err
	}
	if out.Count == 0 {
		out.Count = len(out.TicketKeys)
	}
	return out, nil
}

// TicketInventory handles GET /admin/tickets.
func (c *Client) TicketInventory(ctx context.Context) (models.TicketInventory, error) {
	var out models.TicketInventory
	err := c.do(ctx, call{op: "list_tickets", method: http.MethodGet, path: "/admin/tickets", admin: true}, &out)
	return out, err
}
