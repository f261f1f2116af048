package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/votedesk/console/internal/metrics"
	"github.com/votedesk/console/internal/tickets"
	"github.com/votedesk/console/pkg/queue"
	"github.com/votedesk/console/pkg/storage"
)

// EventArchiveStatus is pushed to the owning session whenever a job settles.
const EventArchiveStatus = "archive_status"

// JobSource is the queue the processor drains.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) (bool, error)
}

// StatusWriter records job progress.
type StatusWriter interface {
	Set(ctx context.Context, st queue.Status) error
}

// SheetUploader stores rendered sheets.
type SheetUploader interface {
	UploadTicketSheet(ctx context.Context, key string, body io.Reader, size int64) error
}

// SessionPublisher forwards events to a console session. Optional.
type SessionPublisher interface {
	PublishSessionEvent(sessionID uuid.UUID, event string, payload interface{}) error
}

// ArchiveProcessor processes ticket sheet archive jobs: render the PDF,
// upload it to S3, record the outcome.
type ArchiveProcessor struct {
	queue     JobSource
	statuses  StatusWriter
	uploader  SheetUploader
	publisher SessionPublisher
	logger    *zap.Logger
	backoff   time.Duration
	now       func() time.Time
}

// NewArchiveProcessor creates an archive processor. publisher may be nil.
func NewArchiveProcessor(q JobSource, statuses StatusWriter, uploader SheetUploader, publisher SessionPublisher, logger *zap.Logger) *ArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveProcessor{
		queue:     q,
		statuses:  statuses,
		uploader:  uploader,
		publisher: publisher,
		logger:    logger,
		backoff:   queue.RetryBackoff,
		now:       time.Now,
	}
}

// Process executes one archive job.
func (p *ArchiveProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTicketSheetArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TicketSheetArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var buf bytes.Buffer
	if err := tickets.NewRenderer(payload.FrontURL).Render(ctx, &buf, payload.TicketKeys); err != nil {
		return fmt.Errorf("render sheet: %w", err)
	}

	key := storage.TicketSheetKey(p.now(), payload.JobID)
	size := int64(buf.Len())
	if err := p.uploader.UploadTicketSheet(ctx, key, &buf, size); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	p.settle(ctx, payload, queue.Status{
		JobID:     payload.JobID,
		SessionID: payload.SessionID,
		State:     queue.StateDone,
		ObjectKey: key,
		Attempt:   job.Attempt,
	})
	p.logger.Info("ticket sheet archived",
		zap.String("job_id", payload.JobID),
		zap.String("s3_key", key),
		zap.Int("tickets", len(payload.TicketKeys)),
		zap.Int64("bytes", size),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *ArchiveProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.fail(ctx, job, err)
			continue
		}
		metrics.ArchiveJobs.WithLabelValues("done").Inc()
	}
}

func (p *ArchiveProcessor) fail(ctx context.Context, job *queue.Job, cause error) {
	p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(cause))
	dead, err := p.queue.Retry(ctx, job)
	if err != nil {
		p.logger.Error("retry enqueue failed", zap.Error(err))
	}
	if !dead {
		metrics.ArchiveJobs.WithLabelValues("retried").Inc()
		p.sleep(ctx)
		return
	}
	metrics.ArchiveJobs.WithLabelValues("failed").Inc()

	var payload queue.TicketSheetArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	p.settle(ctx, payload, queue.Status{
		JobID:     payload.JobID,
		SessionID: payload.SessionID,
		State:     queue.StateFailed,
		Error:     cause.Error(),
		Attempt:   job.Attempt,
	})
}

// settle records the final status and tells the session about it.
func (p *ArchiveProcessor) settle(ctx context.Context, payload queue.TicketSheetArchivePayload, st queue.Status) {
	if err := p.statuses.Set(ctx, st); err != nil {
		p.logger.Error("job status write failed", zap.String("job_id", st.JobID), zap.Error(err))
	}
	if p.publisher == nil {
		return
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return
	}
	if err := p.publisher.PublishSessionEvent(sessionID, EventArchiveStatus, st); err != nil {
		p.logger.Warn("archive status publish failed", zap.String("job_id", st.JobID), zap.Error(err))
	}
}

func (p *ArchiveProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
