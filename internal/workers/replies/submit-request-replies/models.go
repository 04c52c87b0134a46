// internal/workers/replies/submit-request-replies/models.go
package submitrequestreplies

import "checkin-service/internal/models"

type Input struct {
	RequestID int64               `json:"requestId"`
	ProfileID string              `json:"profileId"`
	Replies   []models.ReplyEntry `json:"replies"`
}

type Output struct {
	RequestInfo *models.RequestInfo `json:"requestInfo"`
}
