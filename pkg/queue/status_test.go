package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromFields(t *testing.T) {
	st := statusFromFields("j1", map[string]string{
		"session_id": "s1",
		"state":      StateFailed,
		"error":      "upload: timeout",
		"attempt":    "2",
		"updated_at": "2025-03-01T10:00:00Z",
	})
	assert.Equal(t, Status{
		JobID:     "j1",
		SessionID: "s1",
		State:     StateFailed,
		Error:     "upload: timeout",
		Attempt:   2,
		UpdatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}, st)

	// Garbage numeric fields degrade to zero values.
	st = statusFromFields("j2", map[string]string{"state": StateQueued, "attempt": "x"})
	assert.Equal(t, StateQueued, st.State)
	assert.Zero(t, st.Attempt)
	assert.True(t, st.UpdatedAt.IsZero())
}

func TestNewJobWrapsPayload(t *testing.T) {
	job, err := NewJob("j1", JobTypeTicketSheetArchive, TicketSheetArchivePayload{
		JobID:      "j1",
		TicketKeys: []string{"A", "B"},
	})
	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)
	assert.Zero(t, job.Attempt)

	var p TicketSheetArchivePayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, []string{"A", "B"}, p.TicketKeys)
	assert.Equal(t, "worker:status:j1", StatusKey("j1"))
}
