// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkin-service/internal/common/config"
	"checkin-service/internal/common/errors"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/common/metrics"
	"checkin-service/internal/common/observability"
	"checkin-service/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// DecodeVariables checks the job variables against schema and decodes them
// into out. Any mismatch is a SCHEMA_VIOLATION.
func DecodeVariables(job entities.Job, schema validation.JSONSchema, out interface{}) error {
	raw := []byte(job.Variables)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	result, err := validation.ValidateJSON(schema, raw)
	if err != nil {
		return errors.NewSchemaViolationError(err.Error())
	}
	if !result.Valid {
		return errors.NewSchemaViolationError(result.Summary())
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewSchemaViolationError(fmt.Sprintf("parse input: %v", err))
	}
	return nil
}

// Reporter completes or fails the jobs of one task type and records the outcome.
type Reporter struct {
	taskType string
	handler  *errors.ErrorHandler
	obs      *observability.Observability
	logger   logger.Logger
}

func NewReporter(taskType string, obs *observability.Observability, log logger.Logger) *Reporter {
	return &Reporter{
		taskType: taskType,
		handler:  errors.NewErrorHandler(log),
		obs:      obs,
		logger:   log,
	}
}

func (r *Reporter) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}, start time.Time) {
	r.record(ctx, "completed", start)
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	r.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":     job.Key,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

// Fail hands err to the error handler, which retries or throws a BPMN error.
func (r *Reporter) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	r.record(ctx, "failed", start)
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()

	r.handler.HandleJobError(ctx, client, job, stdErr)
}

func (r *Reporter) record(ctx context.Context, status string, start time.Time) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(elapsed.Seconds())
	r.obs.RecordJobProcessed(ctx, r.taskType, status)
	r.obs.RecordJobDuration(ctx, r.taskType, elapsed, status)
}

// StartWorker opens a job worker for taskType unless it is disabled.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return jobWorker
}
