// internal/models/request.go
package models

import "time"

// Request is one iteration of a recurring topic.
type Request struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	TopicName string    `json:"topic_name,omitempty"`
	PostedAt  time.Time `json:"posted_at"`
}

type Question struct {
	ID           int64  `json:"id"`
	IterationID  int64  `json:"iteration_id"`
	Content      string `json:"content"`
	ResponseType string `json:"response_type"`
}

// MemberReplyStatus pairs a topic member with whether they replied to a request.
type MemberReplyStatus struct {
	ID         string  `json:"id"`
	Name       *string `json:"name"`
	AvatarURL  *string `json:"avatarUrl"`
	HasReplied bool    `json:"has_replied"`
}

// RequestDetail is a Request annotated with the reply status of every topic member.
type RequestDetail struct {
	Request
	ReplyStatuses []MemberReplyStatus `json:"reply_statuses"`
}
