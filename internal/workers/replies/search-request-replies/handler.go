// internal/workers/replies/search-request-replies/handler.go
package searchrequestreplies

import (
	"context"
	"strings"
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
	TaskType = "search-request-replies"
)

type ReplySearcher interface {
	SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error)
}

type Handler struct {
	config   *Config
	service  ReplySearcher
	schema   validation.JSONSchema
	reporter *camunda.Reporter
	logger   logger.Logger
}

func NewHandler(config *Config, service ReplySearcher, reg *registry.ActivityRegistry, obs *observability.Observability, log logger.Logger) *Handler {
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

	query := strings.TrimSpace(input.Query)
	limit := input.Limit
	if limit == 0 {
		limit = h.config.DefaultLimit
	}

	hits, err := h.service.SearchReplies(ctx, input.RequestID, query, limit)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []models.ReplyHit{}
	}

	output := &Output{SearchHits: hits, TotalHits: len(hits)}
	if len(hits) > 0 {
		output.TopProfileID = hits[0].ProfileID
	}

	h.logger.Debug("search completed", map[string]interface{}{
		"checkinId": input.RequestID,
		"query":     query,
		"hits":      len(hits),
	})
	return output, nil
}
