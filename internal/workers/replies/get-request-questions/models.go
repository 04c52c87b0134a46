// internal/workers/replies/get-request-questions/models.go
package getrequestquestions

import "checkin-service/internal/models"

type Input struct {
	RequestID int64 `json:"requestId"`
}

type Output struct {
	RequestQuestions []models.Question `json:"requestQuestions"`
	QuestionIDs      []int64           `json:"questionIds"`
}
