// Package replies validates reply batches before they are stored and shapes
// stored replies into per-member views.
package replies

import (
	"context"

	"checkin-service/internal/common/errors"
	"checkin-service/internal/models"
)

const (
	MsgMissingReplies    = "missing replies"
	MsgMissingQuestionID = "missing question_id"
	MsgMissingContent    = "missing content"
)

// RequestLookup resolves a request. A nil request, or one with a zero id,
// means the request does not exist.
type RequestLookup interface {
	GetRequestDetailed(ctx context.Context, requestID int64) (*models.Request, error)
}

// Accepted is returned for a batch that may be written. It carries the
// resolved request so callers need not fetch it again.
type Accepted struct {
	Request *models.Request
	Replies []models.ReplyEntry
}

type Validator struct {
	requests RequestLookup
}

func NewValidator(requests RequestLookup) *Validator {
	return &Validator{requests: requests}
}

// Validate checks, in order and stopping at the first failure: the request
// exists, the batch is present, and every entry has a question_id and content.
// A nil batch is absent; an empty one is accepted. Duplicate question ids and
// question ids from other requests are not rejected here.
func (v *Validator) Validate(ctx context.Context, requestID int64, batch []models.ReplyEntry) (*Accepted, error) {
	request, err := v.requests.GetRequestDetailed(ctx, requestID)
	if err != nil {
		return nil, errors.NewStoreFailureError("failed to load request", err)
	}
	if request == nil || request.ID == 0 {
		return nil, errors.NewNotFoundError("request")
	}

	if batch == nil {
		return nil, errors.NewBadInputError(MsgMissingReplies)
	}

	for _, entry := range batch {
		if entry.QuestionID == 0 {
			return nil, errors.NewBadInputError(MsgMissingQuestionID)
		}
		if entry.Content == "" {
			return nil, errors.NewBadInputError(MsgMissingContent)
		}
	}

	return &Accepted{Request: request, Replies: batch}, nil
}
