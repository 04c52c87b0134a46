// internal/models/reply.go
package models

import (
	"encoding/json"
	"time"
)

// ReplyRecord is a reply row as the store returns it, with the author's
// display fields joined in.
type ReplyRecord struct {
	ID          int64     `json:"id"`
	PostedAt    time.Time `json:"posted_at"`
	IterationID int64     `json:"iteration_id"`
	QuestionID  int64     `json:"question_id"`
	Question    string    `json:"question"`
	Content     string    `json:"content"`
	ProfileID   string    `json:"profile_id"`
	Name        *string   `json:"name"`
	AvatarURL   *string   `json:"avatarUrl"`
}

// Reply is a reply without author identity.
type Reply struct {
	ID          int64     `json:"id"`
	PostedAt    time.Time `json:"posted_at"`
	IterationID int64     `json:"iteration_id"`
	QuestionID  int64     `json:"question_id"`
	Question    string    `json:"question"`
	Content     string    `json:"content"`
}

// Strip drops the author identity fields.
func (r ReplyRecord) Strip() Reply {
	return Reply{
		ID:          r.ID,
		PostedAt:    r.PostedAt,
		IterationID: r.IterationID,
		QuestionID:  r.QuestionID,
		Question:    r.Question,
		Content:     r.Content,
	}
}

// MemberReplyGroup is every reply one member gave to a request. Name and
// AvatarURL come from the member's first reply and may be null; a member
// without replies has neither key in JSON.
type MemberReplyGroup struct {
	ProfileID string  `json:"profile_id"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Replies   []Reply `json:"replies"`
}

func (g MemberReplyGroup) MarshalJSON() ([]byte, error) {
	replies := g.Replies
	if replies == nil {
		replies = []Reply{}
	}
	if len(replies) == 0 && g.Name == nil && g.AvatarURL == nil {
		return json.Marshal(struct {
			ProfileID string  `json:"profile_id"`
			Replies   []Reply `json:"replies"`
		}{g.ProfileID, replies})
	}
	type plain MemberReplyGroup
	out := plain(g)
	out.Replies = replies
	return json.Marshal(out)
}

// ReplyEntry is one element of a submitted reply batch. A zero QuestionID or
// an empty Content counts as missing.
type ReplyEntry struct {
	QuestionID int64  `json:"question_id"`
	Content    string `json:"content"`
}

// RequestInfo describes a stored reply batch.
type RequestInfo struct {
	RequestID int64   `json:"request_id"`
	ProfileID string  `json:"profile_id"`
	Replies   []Reply `json:"replies"`
}

// ReplyHit is a search match.
type ReplyHit struct {
	Reply
	ProfileID string  `json:"profile_id"`
	Score     float64 `json:"score"`
}
