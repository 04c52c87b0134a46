// internal/workers/replies/get-request-detail/handler.go
package getrequestdetail

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
	TaskType = "get-request-detail"
)

type DetailReader interface {
	GetRequestDetail(ctx context.Context, requestID int64) (*models.RequestDetail, error)
}

type Handler struct {
	config   *Config
	service  DetailReader
	schema   validation.JSONSchema
	reporter *camunda.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, service DetailReader, reg *registry.ActivityRegistry, obs *observability.Observability, log logger.Logger) *Handler {
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

// Execute loads the request and counts members who have and have not replied.
// An unknown request is a NOT_FOUND business error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewBadInputError("input cannot be nil")
	}

	detail, err := h.service.GetRequestDetail(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, errors.NewNotFoundError("request")
	}

	output := &Output{RequestDetail: detail}
	for _, status := range detail.ReplyStatuses {
		if status.HasReplied {
			output.RepliedCount++
		} else {
			output.PendingCount++
		}
	}
	return output, nil
}
