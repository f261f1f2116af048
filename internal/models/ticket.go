package models

// TicketBatch is the result of POST /admin/tickets?count=N. Keys are opaque
// one-time redemption keys in server order.
type TicketBatch struct {
	Count      int      `json:"count"`
	TicketKeys []string `json:"ticket_keys"`
}

// TicketInventory is the payload of GET /admin/tickets.
type TicketInventory struct {
	Total     int64 `json:"total"`
	Redeemed  int64 `json:"redeemed"`
	Available int64 `json:"available"`
}

// Stats is the payload of GET /admin/stats.
type Stats struct {
	TotalTickets    int64 `json:"total_tickets"`
	RedeemedTickets int64 `json:"redeemed_tickets"`
	Voters          int64 `json:"voters"`
	Votes           int64 `json:"votes"`
}
