// internal/workers/replies/submit-request-replies/handler.go
package submitrequestreplies

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"checkin-service/internal/common/camunda"
	"checkin-service/internal/common/errors"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/common/observability"
	"checkin-service/internal/common/validation"
	"checkin-service/internal/models"
	"checkin-service/pkg/registry"
)

const (
	TaskType = "submit-request-replies"
)

// ReplySubmitter stores a validated reply batch.
type ReplySubmitter interface {
	SubmitReplies(ctx context.Context, requestID int64, profileID string, batch []models.ReplyEntry) (*models.RequestInfo, error)
}

type Handler struct {
	config   *Config
	service  ReplySubmitter
	schema   validation.JSONSchema
	reporter *camunda.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, service ReplySubmitter, reg *registry.ActivityRegistry, obs *observability.Observability, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		service:  service,
		schema:   reg.InputSchemaFor(TaskType),
		reporter: camunda.NewReporter(TaskType, obs, scoped),
		logger:   scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := camunda.DecodeVariables(job, h.schema, &input); err != nil {
		h.reporter.Fail(context.Background(), client, job, err, start)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.reporter.Fail(context.Background(), client, job, err, start)
		return
	}

	h.reporter.Complete(context.Background(), client, job, output, start)
}

// Execute submits the batch on behalf of input.ProfileID. The batch is
// validated before the caller identity is checked, so a batch for an unknown
// request fails with NOT_FOUND even without a profile.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewBadInputError("input cannot be nil")
	}

	info, err := h.service.SubmitReplies(ctx, input.RequestID, input.ProfileID, input.Replies)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("replies submitted", map[string]interface{}{
		"checkinId":  input.RequestID,
		"profileId":  input.ProfileID,
		"replyCount": len(info.Replies),
	})
	return &Output{RequestInfo: info}, nil
}
