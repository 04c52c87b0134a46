package searchrequestreplies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"checkin-service/internal/common/config"
	"checkin-service/internal/common/errors"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/models"
)

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error) {
	args := m.Called(ctx, requestID, query, limit)
	hits, _ := args.Get(0).([]models.ReplyHit)
	return hits, args.Error(1)
}

func setupHandler(t *testing.T) (*Handler, *MockSearcher) {
	service := new(MockSearcher)
	cfg := &Config{Timeout: time.Second, DefaultLimit: 20}
	return NewHandler(cfg, service, nil, nil, logger.NewTestLogger(t)), service
}

func TestHandler_Execute_Success(t *testing.T) {
	handler, service := setupHandler(t)

	hits := []models.ReplyHit{
		{Reply: models.Reply{ID: 8, Content: "migrated the database"}, ProfileID: "dana", Score: 2.4},
		{Reply: models.Reply{ID: 3, Content: "database backups"}, ProfileID: "eli", Score: 1.1},
	}
	service.On("SearchReplies", mock.Anything, int64(4), "database", 5).Return(hits, nil)

	output, err := handler.Execute(context.Background(), &Input{RequestID: 4, Query: "  database ", Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, hits, output.SearchHits)
	assert.Equal(t, 2, output.TotalHits)
	assert.Equal(t, "dana", output.TopProfileID)
	service.AssertExpectations(t)
}

func TestHandler_Execute_DefaultLimit(t *testing.T) {
	handler, service := setupHandler(t)
	service.On("SearchReplies", mock.Anything, int64(4), "standup", 20).Return(nil, nil)

	output, err := handler.Execute(context.Background(), &Input{RequestID: 4, Query: "standup"})

	require.NoError(t, err)
	assert.Empty(t, output.SearchHits)
	assert.NotNil(t, output.SearchHits)
	assert.Empty(t, output.TopProfileID)
	service.AssertExpectations(t)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{"missing query", errors.NewBadInputError("missing query"), errors.ErrCodeBadInput},
		{"search failure", errors.NewSearchQueryFailedError(assert.AnError), errors.ErrCodeSearchQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, service := setupHandler(t)
			service.On("SearchReplies", mock.Anything, int64(4), mock.Anything, mock.Anything).Return(nil, tt.err)

			output, err := handler.Execute(context.Background(), &Input{RequestID: 4, Query: "x"})

			assert.Nil(t, output)
			assert.True(t, errors.HasCode(err, tt.code))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{}, config.SearchConfig{DefaultLimit: 25})
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 25, cfg.DefaultLimit)
}
