// internal/workers/replies/get-request-detail/models.go
package getrequestdetail

import "checkin-service/internal/models"

type Input struct {
	RequestID int64 `json:"requestId"`
}

// Output carries the detail plus the counts a gateway usually branches on.
type Output struct {
	RequestDetail *models.RequestDetail `json:"requestDetail"`
	RepliedCount  int                   `json:"repliedCount"`
	PendingCount  int                   `json:"pendingCount"`
}
