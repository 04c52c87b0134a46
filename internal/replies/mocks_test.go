package replies

import (
	"context"

	"checkin-service/internal/models"

	"github.com/stretchr/testify/mock"
)

// ==========================
// Mock Store / Cache / Indexer
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetRequestDetailed(ctx context.Context, requestID int64) (*models.Request, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Request), args.Error(1)
}

func (m *MockStore) GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockStore) GetRequestReplies(ctx context.Context, requestID int64) ([]models.ReplyRecord, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReplyRecord), args.Error(1)
}

func (m *MockStore) GetWhoHasReplied(ctx context.Context, requestID int64) ([]string, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStore) GetMemberRepliedStatus(ctx context.Context, requestID, topicID int64) ([]models.MemberReplyStatus, error) {
	args := m.Called(ctx, requestID, topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MemberReplyStatus), args.Error(1)
}

func (m *MockStore) AddRequestReplies(ctx context.Context, requestID int64, profileID string, replies []models.ReplyEntry) (*models.RequestInfo, error) {
	args := m.Called(ctx, requestID, profileID, replies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RequestInfo), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, bool, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.MemberReplyGroup), args.Bool(1), args.Error(2)
}

func (m *MockCache) Generation(ctx context.Context, requestID int64) (int64, error) {
	args := m.Called(ctx, requestID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) SetReplies(ctx context.Context, requestID int64, generation int64, groups []models.MemberReplyGroup) error {
	return m.Called(ctx, requestID, generation, groups).Error(0)
}

func (m *MockCache) InvalidateReplies(ctx context.Context, requestID int64) error {
	return m.Called(ctx, requestID).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexReplies(ctx context.Context, info *models.RequestInfo) error {
	return m.Called(ctx, info).Error(0)
}

func (m *MockIndexer) SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error) {
	args := m.Called(ctx, requestID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReplyHit), args.Error(1)
}

func strPtr(s string) *string {
	return &s
}
