package elections

import (
	"errors"
	"strings"
	"time"

	"github.com/votedesk/console/internal/models"
)

// ErrElectionNotFound is returned when a mutation names an election that is
// not in the latest fetched list.
var ErrElectionNotFound = errors.New("election not found in current list")

// ValidationError is a local rejection; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Browser datetime-local inputs send "2006-01-02T15:04"; the server wants
// "2006-01-02 15:04:05". Already-normalized values pass through.
var inputLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	models.DateTimeLayout,
}

// NormalizeDateTime converts a UI datetime into the server's wire format.
func NormalizeDateTime(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("datetime is empty")
	}
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateTimeLayout), nil
		}
	}
	return "", errors.New("datetime must look like YYYY-MM-DDTHH:MM")
}

// normalizeRange validates and normalizes a start/end pair.
func normalizeRange(start, end string) (string, string, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return "", "", invalid("dates", "start and end are both required")
	}
	ns, err := NormalizeDateTime(start)
	if err != nil {
		return "", "", invalid("starts_at", "starts_at: "+err.Error())
	}
	ne, err := NormalizeDateTime(end)
	if err != nil {
		return "", "", invalid("ends_at", "ends_at: "+err.Error())
	}
	// Same layout and zero-padded, so string order is time order.
	if ne < ns {
		return "", "", invalid("ends_at", "ends_at must not be before starts_at")
	}
	return ns, ne, nil
}

// cleanOptions trims labels and drops the empty ones.
func cleanOptions(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
