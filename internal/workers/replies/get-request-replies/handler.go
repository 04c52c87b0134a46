// internal/workers/replies/get-request-replies/handler.go
package getrequestreplies

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
	TaskType = "get-request-replies"
)

type RepliesReader interface {
	GetRequestReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, error)
}

type Handler struct {
	config   *Config
	service  RepliesReader
	schema   validation.JSONSchema
	reporter *camunda.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, service RepliesReader, reg *registry.ActivityRegistry, obs *observability.Observability, log logger.Logger) *Handler {
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewBadInputError("input cannot be nil")
	}

	groups, err := h.service.GetRequestReplies(ctx, input.RequestID)
	if err != nil {
		return nil, err
	}
	if groups == nil {
		groups = []models.MemberReplyGroup{}
	}

	return &Output{
		RequestReplies: groups,
		MemberCount:    len(groups),
	}, nil
}
