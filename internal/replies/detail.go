package replies

import "checkin-service/internal/models"

// WithReplyStatuses attaches member reply statuses to a request.
func WithReplyStatuses(request *models.Request, statuses []models.MemberReplyStatus) *models.RequestDetail {
	if statuses == nil {
		statuses = []models.MemberReplyStatus{}
	}
	return &models.RequestDetail{
		Request:       *request,
		ReplyStatuses: statuses,
	}
}
