// internal/store/search/replies.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkin-service/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrMissingIndex  = errors.New("index name is required")
	ErrBulkRejected  = errors.New("bulk indexing rejected")
	ErrSearchFailed  = errors.New("search request failed")
	ErrIndexCreation = errors.New("index creation failed")
)

const maxSearchLimit = 100

// indexMapping keeps request_id and profile_id exact so they can be filtered on.
const indexMapping = `{
	"mappings": {
		"properties": {
			"request_id":   {"type": "long"},
			"iteration_id": {"type": "long"},
			"question_id":  {"type": "long"},
			"question":     {"type": "text"},
			"content":      {"type": "text"},
			"profile_id":   {"type": "keyword"},
			"posted_at":    {"type": "date"}
		}
	}
}`

// replyDocument is the indexed form of a reply. The document id is the reply id.
type replyDocument struct {
	RequestID   int64     `json:"request_id"`
	IterationID int64     `json:"iteration_id"`
	QuestionID  int64     `json:"question_id"`
	Question    string    `json:"question"`
	Content     string    `json:"content"`
	ProfileID   string    `json:"profile_id"`
	PostedAt    time.Time `json:"posted_at"`
}

// ReplyIndex indexes submitted replies and runs full-text searches over them.
type ReplyIndex struct {
	client       *elasticsearch.Client
	index        string
	defaultLimit int
}

func NewReplyIndex(client *elasticsearch.Client, index string, defaultLimit int) (*ReplyIndex, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &ReplyIndex{client: client, index: index, defaultLimit: defaultLimit}, nil
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (r *ReplyIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{r.index}}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCreation, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: r.index,
		Body:  strings.NewReader(indexMapping),
	}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCreation, err)
	}
	defer res.Body.Close()
	// a concurrent creator wins the race with a 400 resource_already_exists_exception
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("%w: %s", ErrIndexCreation, res.String())
	}
	return nil
}

// IndexReplies writes every reply of the batch with one bulk request.
func (r *ReplyIndex) IndexReplies(ctx context.Context, info *models.RequestInfo) error {
	if info == nil || len(info.Replies) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, reply := range info.Replies {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": r.index, "_id": strconv.FormatInt(reply.ID, 10)},
		}
		doc := replyDocument{
			RequestID:   info.RequestID,
			IterationID: reply.IterationID,
			QuestionID:  reply.QuestionID,
			Question:    reply.Question,
			Content:     reply.Content,
			ProfileID:   info.ProfileID,
			PostedAt:    reply.PostedAt,
		}
		if err := enc.Encode(meta); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	res, err := esapi.BulkRequest{
		Index: r.index,
		Body:  &body,
	}.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBulkRejected, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrBulkRejected, res.String())
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrBulkRejected, err)
	}
	if bulk.Errors {
		for _, item := range bulk.Items {
			for _, result := range item {
				if result.Status >= 300 {
					return fmt.Errorf("%w: reply %s: %s: %s", ErrBulkRejected, result.ID, result.Error.Type, result.Error.Reason)
				}
			}
		}
		return ErrBulkRejected
	}
	return nil
}

// SearchReplies matches query against reply content within one request.
// A non-positive limit uses the configured default.
func (r *ReplyIndex) SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	body, err := json.Marshal(buildSearchQuery(requestID, query))
	if err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{r.index},
		Body:  bytes.NewReader(body),
		Size:  &limit,
	}.Do(ctx, r.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, res.StatusCode, string(raw))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string        `json:"_id"`
				Score  float64       `json:"_score"`
				Source replyDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	hits := make([]models.ReplyHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, models.ReplyHit{
			Reply: models.Reply{
				ID:          id,
				PostedAt:    h.Source.PostedAt,
				IterationID: h.Source.IterationID,
				QuestionID:  h.Source.QuestionID,
				Question:    h.Source.Question,
				Content:     h.Source.Content,
			},
			ProfileID: h.Source.ProfileID,
			Score:     h.Score,
		})
	}
	return hits, nil
}

func buildSearchQuery(requestID int64, query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"content": map[string]interface{}{"query": query, "operator": "and"},
						},
					},
				},
				"filter": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"request_id": requestID},
					},
				},
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"posted_at": "desc"}},
	}
}
