package models

// ElectionStatus is the server-side lifecycle state of an election. Values
// outside the known set are passed through untouched.
type ElectionStatus string

const (
	StatusScheduled ElectionStatus = "scheduled"
	StatusActive    ElectionStatus = "active"
	StatusClosed    ElectionStatus = "closed"
)

// Known reports whether s is one of the statuses the console can set.
func (s ElectionStatus) Known() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusClosed:
		return true
	}
	return false
}

// DateTimeLayout is the wire format of election timestamps (second precision, no zone).
const DateTimeLayout = "2006-01-02 15:04:05"

// Election mirrors one row of GET /elections.
// IsOpen comes from the server and is never derived from Status.
type Election struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	StartsAt    string         `json:"starts_at"`
	EndsAt      string         `json:"ends_at"`
	Status      ElectionStatus `json:"status"`
	IsOpen      bool           `json:"is_open"`
}

// ElectionOption is one answer choice of an election.
type ElectionOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// VoteResultRow is the tally of one option. Percent is the server's rounding.
type VoteResultRow struct {
	OptionID int64   `json:"option_id"`
	Label    string  `json:"label"`
	Votes    int64   `json:"votes"`
	Percent  float64 `json:"percent"`
}

// Results is the payload of GET /admin/elections/{id}/results.
type Results struct {
	ElectionID int64           `json:"election_id"`
	Results    []VoteResultRow `json:"results"`
	TotalVotes int64           `json:"total_votes"`
}

// Options is the payload of GET /elections/{id}/options.
type Options struct {
	ElectionID int64            `json:"election_id"`
	Options    []ElectionOption `json:"options"`
}

// CreateElectionRequest is the body of POST /admin/elections.
type CreateElectionRequest struct {
	Title       string         `json:"title"`
	StartsAt    string         `json:"starts_at"`
	EndsAt      string         `json:"ends_at"`
	Description string         `json:"description,omitempty"`
	Status      ElectionStatus `json:"status,omitempty"`
	Options     []string       `json:"options,omitempty"`
}

// UpdateElectionRequest is the body of PUT /admin/elections/{id}. The server
// replaces the whole record, so every field must be sent.
type UpdateElectionRequest struct {
	Title       string         `json:"title"`
	StartsAt    string         `json:"starts_at"`
	EndsAt      string         `json:"ends_at"`
	Status      ElectionStatus `json:"status"`
	Description string         `json:"description,omitempty"`
}

// UpdateFrom builds a whole-record update from a snapshot of e.
func UpdateFrom(e Election) UpdateElectionRequest {
	return UpdateElectionRequest{
		Title:       e.Title,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		Status:      e.Status,
		Description: e.Description,
	}
}

// CreateOptionRequest is the body of POST /admin/elections/{id}/options.
type CreateOptionRequest struct {
	Label string `json:"label"`
}
