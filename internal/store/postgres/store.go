// internal/store/postgres/store.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkin-service/internal/common/logger"
	"checkin-service/internal/models"

	"github.com/lib/pq"
)

// Postgres error codes the store reports on.
const (
	pqForeignKeyViolation = "23503"
	pqNotNullViolation    = "23502"
)

// Store implements the reply persistence operations over the check-in schema:
// iterations (requests) belong to topics, questions belong to iterations and
// replies are unique per (iteration_id, question_id, profile_id).
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

// GetRequestDetailed returns nil without error when the request does not exist.
func (s *Store) GetRequestDetailed(ctx context.Context, requestID int64) (*models.Request, error) {
	var (
		request   models.Request
		topicName sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT i.id, i.topic_id, t.name, i.posted_at
		FROM iterations i
		JOIN topics t ON t.id = i.topic_id
		WHERE i.id = $1`, requestID).Scan(
		&request.ID, &request.TopicID, &topicName, &request.PostedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", requestID, err)
	}
	request.TopicName = topicName.String
	return &request, nil
}

func (s *Store) GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, iteration_id, content, response_type
		FROM questions
		WHERE iteration_id = $1
		ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("get questions of request %d: %w", requestID, err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.IterationID, &q.Content, &q.ResponseType); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetRequestReplies returns every reply of the request in posting order with
// the author's display fields joined in.
func (s *Store) GetRequestReplies(ctx context.Context, requestID int64) ([]models.ReplyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.posted_at, r.iteration_id, r.question_id, q.content,
		       r.content, r.profile_id, m.name, m.avatar_url
		FROM replies r
		JOIN questions q ON q.id = r.question_id
		LEFT JOIN members m ON m.profile_id = r.profile_id
		WHERE r.iteration_id = $1
		ORDER BY r.posted_at, r.id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("get replies of request %d: %w", requestID, err)
	}
	defer rows.Close()

	records := []models.ReplyRecord{}
	for rows.Next() {
		var (
			rec       models.ReplyRecord
			name      sql.NullString
			avatarURL sql.NullString
		)
		err := rows.Scan(
			&rec.ID, &rec.PostedAt, &rec.IterationID, &rec.QuestionID, &rec.Question,
			&rec.Content, &rec.ProfileID, &name, &avatarURL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reply: %w", err)
		}
		rec.Name = nullableString(name)
		rec.AvatarURL = nullableString(avatarURL)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetWhoHasReplied lists the profile ids that replied, ordered by their first reply.
func (s *Store) GetWhoHasReplied(ctx context.Context, requestID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id
		FROM replies
		WHERE iteration_id = $1
		GROUP BY profile_id
		ORDER BY MIN(posted_at), profile_id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("get repliers of request %d: %w", requestID, err)
	}
	defer rows.Close()

	profileIDs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan replier: %w", err)
		}
		profileIDs = append(profileIDs, id)
	}
	return profileIDs, rows.Err()
}

func (s *Store) GetMemberRepliedStatus(ctx context.Context, requestID, topicID int64) ([]models.MemberReplyStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.profile_id, m.name, m.avatar_url,
		       EXISTS (
		           SELECT 1 FROM replies r
		           WHERE r.iteration_id = $1 AND r.profile_id = m.profile_id
		       ) AS has_replied
		FROM topic_members tm
		JOIN members m ON m.profile_id = tm.profile_id
		WHERE tm.topic_id = $2
		ORDER BY tm.joined_at, m.profile_id`, requestID, topicID)
	if err != nil {
		return nil, fmt.Errorf("get reply status of request %d: %w", requestID, err)
	}
	defer rows.Close()

	statuses := []models.MemberReplyStatus{}
	for rows.Next() {
		var (
			st        models.MemberReplyStatus
			name      sql.NullString
			avatarURL sql.NullString
		)
		if err := rows.Scan(&st.ID, &name, &avatarURL, &st.HasReplied); err != nil {
			return nil, fmt.Errorf("scan reply status: %w", err)
		}
		st.Name = nullableString(name)
		st.AvatarURL = nullableString(avatarURL)
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}

// AddRequestReplies upserts the batch in one transaction. A second reply to
// the same question by the same member replaces the first.
func (s *Store) AddRequestReplies(ctx context.Context, requestID int64, profileID string, replies []models.ReplyEntry) (*models.RequestInfo, error) {
	info := &models.RequestInfo{
		RequestID: requestID,
		ProfileID: profileID,
		Replies:   make([]models.Reply, 0, len(replies)),
	}
	if len(replies) == 0 {
		return info, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", map[string]interface{}{"error": rbErr, "requestId": requestID})
			}
		}
	}()

	for _, entry := range replies {
		reply := models.Reply{
			IterationID: requestID,
			QuestionID:  entry.QuestionID,
			Content:     entry.Content,
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO replies (iteration_id, question_id, profile_id, content, posted_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (iteration_id, question_id, profile_id)
			DO UPDATE SET content = EXCLUDED.content, posted_at = EXCLUDED.posted_at
			RETURNING id, posted_at,
			          (SELECT q.content FROM questions q WHERE q.id = replies.question_id)`,
			requestID, entry.QuestionID, profileID, entry.Content,
		).Scan(&reply.ID, &reply.PostedAt, &reply.Question)
		if err != nil {
			err = describeWriteError(entry, err)
			return nil, err
		}
		info.Replies = append(info.Replies, reply)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replies: %w", err)
	}
	return info, nil
}

func describeWriteError(entry models.ReplyEntry, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqForeignKeyViolation:
			return fmt.Errorf("question %d or member does not exist: %w", entry.QuestionID, err)
		case pqNotNullViolation:
			return fmt.Errorf("reply to question %d is incomplete: %w", entry.QuestionID, err)
		}
	}
	return fmt.Errorf("insert reply to question %d: %w", entry.QuestionID, err)
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
