package console

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/votedesk/console/pkg/queue"
)

// ErrArchiveNotFound is returned for unknown, expired or foreign job ids.
var ErrArchiveNotFound = errors.New("archive job not found")

// ArchiveStatus is a job status as the operator sees it.
type ArchiveStatus struct {
	queue.Status
	DownloadURL string `json:"download_url,omitempty"`
}

// Archiver queues ticket sheets for storage and reports on them.
type Archiver interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID, frontURL string, keys []string) (ArchiveStatus, error)
	Status(ctx context.Context, sessionID uuid.UUID, jobID string) (ArchiveStatus, error)
}

type jobQueue interface {
	EnqueueTicketSheetArchive(ctx context.Context, payload queue.TicketSheetArchivePayload) (string, error)
}

type statusStore interface {
	Set(ctx context.Context, st queue.Status) error
	Get(ctx context.Context, jobID string) (queue.Status, error)
}

type presigner interface {
	PresignTicketSheet(ctx context.Context, key string) (string, error)
}

// QueueArchiver hands sheets to the archive worker over the redis queue.
type QueueArchiver struct {
	queue    jobQueue
	statuses statusStore
	presign  presigner
	logger   *zap.Logger
}

// NewQueueArchiver wires the archiver. presign may be nil, in which case no
// download URLs are produced.
func NewQueueArchiver(q jobQueue, statuses statusStore, presign presigner, logger *zap.Logger) *QueueArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueArchiver{queue: q, statuses: statuses, presign: presign, logger: logger}
}

// Enqueue records the job as queued, then pushes it.
func (a *QueueArchiver) Enqueue(ctx context.Context, sessionID uuid.UUID, frontURL string, keys []string) (ArchiveStatus, error) {
	st := queue.Status{
		JobID:     uuid.New().String(),
		SessionID: sessionID.String(),
		State:     queue.StateQueued,
	}
	// Status first so a fast worker never overwrites "done" with "queued".
	if err := a.statuses.Set(ctx, st); err != nil {
		return ArchiveStatus{}, err
	}
	if _, err := a.queue.EnqueueTicketSheetArchive(ctx, queue.TicketSheetArchivePayload{
		JobID:      st.JobID,
		SessionID:  st.SessionID,
		FrontURL:   frontURL,
		TicketKeys: keys,
	}); err != nil {
		return ArchiveStatus{}, err
	}
	a.logger.Info("ticket sheet archive queued",
		zap.String("job_id", st.JobID),
		zap.String("session_id", st.SessionID),
		zap.Int("tickets", len(keys)),
	)
	return ArchiveStatus{Status: st}, nil
}

// Status reads a job of this session, with a fresh download URL once done.
func (a *QueueArchiver) Status(ctx context.Context, sessionID uuid.UUID, jobID string) (ArchiveStatus, error) {
	st, err := a.statuses.Get(ctx, jobID)
	if errors.Is(err, queue.ErrStatusNotFound) {
		return ArchiveStatus{}, ErrArchiveNotFound
	}
	if err != nil {
		return ArchiveStatus{}, err
	}
	if st.SessionID != sessionID.String() {
		return ArchiveStatus{}, ErrArchiveNotFound
	}
	out := ArchiveStatus{Status: st}
	if st.State == queue.StateDone && st.ObjectKey != "" && a.presign != nil {
		url, err := a.presign.PresignTicketSheet(ctx, st.ObjectKey)
		if err != nil {
			return ArchiveStatus{}, err
		}
		out.DownloadURL = url
	}
	return out, nil
}
