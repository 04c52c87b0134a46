// internal/workers/replies/search-request-replies/models.go
package searchrequestreplies

import "checkin-service/internal/models"

type Input struct {
	RequestID int64  `json:"requestId"`
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
}

type Output struct {
	SearchHits []models.ReplyHit `json:"searchHits"`
	TotalHits  int               `json:"totalHits"`
	// TopProfileID is the author of the best match, empty without hits.
	TopProfileID string `json:"topProfileId"`
}
