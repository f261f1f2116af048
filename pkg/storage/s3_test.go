package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicketSheetKey(t *testing.T) {
	day := time.Date(2025, 4, 9, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "tickets/2025-04-10/job-1.pdf", TicketSheetKey(day, "job-1"))
}
