package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Job states recorded in the status hash.
const (
	StateQueued = "queued"
	StateDone   = "done"
	StateFailed = "failed"
)

// ErrStatusNotFound is returned for unknown or expired job ids.
var ErrStatusNotFound = errors.New("job status not found")

// Status is the last known state of a job.
type Status struct {
	JobID     string    `json:"job_id"`
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	ObjectKey string    `json:"object_key,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempt   int       `json:"attempt"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusStore keeps job statuses in redis hashes that expire after ttl.
type StatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusStore creates a status store.
func NewStatusStore(client *redis.Client, ttl time.Duration) *StatusStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &StatusStore{client: client, ttl: ttl}
}

// StatusKey is the redis key of a job's status hash.
func StatusKey(jobID string) string {
	return "worker:status:" + jobID
}

// Set writes the status and refreshes its expiry.
func (s *StatusStore) Set(ctx context.Context, st Status) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	key := StatusKey(st.JobID)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, st.fields())
		p.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	return nil
}

// Get reads a job status.
func (s *StatusStore) Get(ctx context.Context, jobID string) (Status, error) {
	m, err := s.client.HGetAll(ctx, StatusKey(jobID)).Result()
	if err != nil {
		return Status{}, fmt.Errorf("get job status: %w", err)
	}
	if len(m) == 0 {
		return Status{}, ErrStatusNotFound
	}
	return statusFromFields(jobID, m), nil
}

func (st Status) fields() map[string]interface{} {
	return map[string]interface{}{
		"session_id": st.SessionID,
		"state":      st.State,
		"object_key": st.ObjectKey,
		"error":      st.Error,
		"attempt":    st.Attempt,
		"updated_at": st.UpdatedAt.Format(time.RFC3339),
	}
}

func statusFromFields(jobID string, m map[string]string) Status {
	attempt, _ := strconv.Atoi(m["attempt"])
	updated, _ := time.Parse(time.RFC3339, m["updated_at"])
	return Status{
		JobID:     jobID,
		SessionID: m["session_id"],
		State:     m["state"],
		ObjectKey: m["object_key"],
		Error:     m["error"],
		Attempt:   attempt,
		UpdatedAt: updated,
	}
}
