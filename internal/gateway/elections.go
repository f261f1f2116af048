package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/votedesk/console/internal/models"
)

// ListElections handles GET /elections.
func (c *Client) ListElections(ctx context.Context) ([]models.Election, error) {
	var out struct {
		Elections []models.Election `json:"elections"`
	}
	err := c.do(ctx, call{op: "list_elections", method: http.MethodGet, path: "/elections"}, &out)
	if err != nil {
		return nil, err
	}
	return out.Elections, nil
}

// Options handles GET /elections/{id}/options.
func (c *Client) Options(ctx context.Context, electionID int64) (models.Options, error) {
	var out models.Options
	err := c.do(ctx, call{
		op:     "get_options",
		method: http.MethodGet,
		path:   fmt.Sprintf("/elections/%d/options", electionID),
	}, &out)
	if err != nil {
		return models.Options{}, err
	}
	if out.ElectionID == 0 {
		out.ElectionID = electionID
	}
	return out, nil
}

// Results handles GET /admin/elections/{id}/results.
func (c *Client) Results(ctx context.Context, electionID int64) (models.Results, error) {
	var out models.Results
	err := c.do(ctx, call{
		op:     "get_results",
		method: http.MethodGet,
		path:   fmt.Sprintf("/admin/elections/%d/results", electionID),
		admin:  true,
	}, &out)
	if err != nil {
		return models.Results{}, err
	}
	if out.ElectionID == 0 {
		out.ElectionID = electionID
	}
	return out, nil
}

// CreateElection handles POST /admin/elections and returns the new id.
func (c *Client) CreateElection(ctx context.Context, body models.CreateElectionRequest) (int64, error) {
	var out struct {
		ElectionID int64 `json:"election_id"`
	}
	err := c.do(ctx, call{
		op:     "create_election",
		method: http.MethodPost,
		path:   "/admin/elections",
		admin:  true,
		body:   body,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.ElectionID, nil
}

// UpdateElection handles PUT /admin/elections/{id}. body must be the whole record.
func (c *Client) UpdateElection(ctx context.Context, electionID int64, body models.UpdateElectionRequest) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.do(ctx, call{
		op:     "update_election",
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/elections/%d", electionID),
		admin:  true,
		body:   body,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// CreateOption handles POST /admin/elections/{id}/options for a single label.
func (c *Client) CreateOption(ctx context.Context, electionID int64, label string) (int64, error) {
	var out struct {
		Created int64 `json:"created"`
	}
	err := c.do(ctx, call{
		op:     "create_option",
		method: http.MethodPost,
		path:   fmt.Sprintf("/admin/elections/%d/options", electionID),
		admin:  true,
		body:   models.CreateOptionRequest{Label: label},
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Created, nil
}
