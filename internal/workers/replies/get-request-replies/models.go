// internal/workers/replies/get-request-replies/models.go
package getrequestreplies

import "checkin-service/internal/models"

type Input struct {
	RequestID int64 `json:"requestId"`
}

type Output struct {
	RequestReplies []models.MemberReplyGroup `json:"requestReplies"`
	MemberCount    int                       `json:"memberCount"`
}
