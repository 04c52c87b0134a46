package httptransport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"checkin-service/internal/common/auth"
	"checkin-service/internal/common/errors"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/models"
	"checkin-service/internal/replies"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Service / Validator
// ==========================

type MockService struct {
	mock.Mock
}

func (m *MockService) GetRequestDetail(ctx context.Context, requestID int64) (*models.RequestDetail, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RequestDetail), args.Error(1)
}

func (m *MockService) GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *MockService) GetRequestReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MemberReplyGroup), args.Error(1)
}

func (m *MockService) SubmitReplies(ctx context.Context, requestID int64, profileID string, batch []models.ReplyEntry) (*models.RequestInfo, error) {
	args := m.Called(ctx, requestID, profileID, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RequestInfo), args.Error(1)
}

func (m *MockService) SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error) {
	args := m.Called(ctx, requestID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReplyHit), args.Error(1)
}

type stubValidator struct {
	tokens map[string]string
}

func (s stubValidator) ValidateToken(_ context.Context, token string) (*auth.TokenInfo, error) {
	sub, ok := s.tokens[token]
	if !ok {
		return nil, errors.NewUnauthorizedError("token is expired, revoked or malformed")
	}
	return &auth.TokenInfo{Active: true, Sub: sub}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func newTestRouter(t *testing.T, svc Service, opts Options) http.Handler {
	if opts.ProfileHeader == "" && opts.Validator == nil {
		opts.ProfileHeader = "X-Profile-ID"
	}
	return NewRouter(NewHandler(svc, logger.NewTestLogger(t), opts))
}

func serve(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func strPtr(s string) *string { return &s }

// ==========================
// Read Routes
// ==========================

func TestHandleGetRequest(t *testing.T) {
	svc := new(MockService)
	svc.On("GetRequestDetail", mock.Anything, int64(42)).Return(&models.RequestDetail{
		Request: models.Request{ID: 42, TopicID: 7},
		ReplyStatuses: []models.MemberReplyStatus{
			{ID: "A", Name: strPtr("Alice"), HasReplied: true},
		},
	}, nil)
	svc.On("GetRequestDetail", mock.Anything, int64(404)).Return(nil, errors.NewNotFoundError("request"))

	router := newTestRouter(t, svc, Options{})

	w := serve(router, http.MethodGet, "/requests/42", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	body := decodeBody(t, w)
	assert.Equal(t, float64(42), body["id"])
	statuses := body["reply_statuses"].([]interface{})
	require.Len(t, statuses, 1)
	assert.Equal(t, true, statuses[0].(map[string]interface{})["has_replied"])

	w = serve(router, http.MethodGet, "/requests/404", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "request not found", decodeBody(t, w)["error"])
}

func TestHandleGetQuestions(t *testing.T) {
	svc := new(MockService)
	svc.On("GetRequestQuestions", mock.Anything, int64(42)).Return([]models.Question{
		{ID: 1, IterationID: 42, Content: "Any blockers?", ResponseType: "text"},
	}, nil)

	w := serve(newTestRouter(t, svc, Options{}), http.MethodGet, "/requests/42/questions", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	questions := decodeBody(t, w)["request_questions"].([]interface{})
	require.Len(t, questions, 1)
	assert.Equal(t, "Any blockers?", questions[0].(map[string]interface{})["content"])
}

func TestHandleGetReplies(t *testing.T) {
	svc := new(MockService)
	svc.On("GetRequestReplies", mock.Anything, int64(42)).Return([]models.MemberReplyGroup{
		{ProfileID: "B", Name: strPtr("Bob"), Replies: []models.Reply{{ID: 2, Content: "y"}}},
		{ProfileID: "A", Name: strPtr("Alice"), Replies: []models.Reply{{ID: 1, Content: "x"}}},
	}, nil)
	svc.On("GetRequestReplies", mock.Anything, int64(43)).Return(nil, errors.NewStoreFailureError("failed to load replies", stderrors.New("db down")))

	router := newTestRouter(t, svc, Options{})

	w := serve(router, http.MethodGet, "/requests/42/replies", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	groups := decodeBody(t, w)["request_replies"].([]interface{})
	require.Len(t, groups, 2)
	assert.Equal(t, "B", groups[0].(map[string]interface{})["profile_id"])

	w = serve(router, http.MethodGet, "/requests/43/replies", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to load replies", decodeBody(t, w)["error"])
}

func TestInvalidRequestID(t *testing.T) {
	svc := new(MockService)
	router := newTestRouter(t, svc, Options{})

	for _, path := range []string{"/requests/abc", "/requests/0/replies", "/requests/-1/questions", "/requests/x/replies/search?q=a"} {
		w := serve(router, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Equal(t, "invalid request id", decodeBody(t, w)["error"], path)
	}
	svc.AssertNotCalled(t, "GetRequestDetail", mock.Anything, mock.Anything)
}

// ==========================
// Submit Route
// ==========================

func TestHandleSubmitReplies(t *testing.T) {
	batch := []models.ReplyEntry{{QuestionID: 1, Content: "Done"}}
	info := &models.RequestInfo{
		RequestID: 42,
		ProfileID: "A",
		Replies:   []models.Reply{{ID: 100, IterationID: 42, QuestionID: 1, Content: "Done"}},
	}

	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "A", batch).Return(info, nil)

	w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies",
		`{"replies":[{"question_id":1,"content":"Done"}]}`,
		map[string]string{"X-Profile-ID": "A"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got models.RequestInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, *info, got)
	svc.AssertExpectations(t)
}

func TestHandleSubmitReplies_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{"unknown request", `{"replies":[]}`, errors.NewNotFoundError("request"), http.StatusNotFound, "request not found"},
		{"missing replies", `{}`, errors.NewBadInputError("missing replies"), http.StatusBadRequest, "missing replies"},
		{"missing content", `{"replies":[{"question_id":1}]}`, errors.NewBadInputError("missing content"), http.StatusBadRequest, "missing content"},
		{"store failure", `{"replies":[{"question_id":1,"content":"x"}]}`, errors.NewStoreFailureError("failed to add replies", nil), http.StatusInternalServerError, "failed to add replies"},
		{"unclassified failure", `{"replies":[]}`, stderrors.New("pq: secret detail"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("SubmitReplies", mock.Anything, int64(42), "A", mock.Anything).Return(nil, tt.serviceErr)

			w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies", tt.body,
				map[string]string{"X-Profile-ID": "A"})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestHandleSubmitReplies_NullRepliesReachService(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "A", []models.ReplyEntry(nil)).
		Return(nil, errors.NewBadInputError("missing replies"))

	w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies",
		`{"replies":null}`, map[string]string{"X-Profile-ID": "A"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestHandleSubmitReplies_InvalidBody(t *testing.T) {
	svc := new(MockService)

	w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies", `{"replies":`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", decodeBody(t, w)["error"])
	svc.AssertNotCalled(t, "SubmitReplies", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// requestOnlyStore knows a fixed set of requests; nothing else is reachable
// before the validator has accepted a batch.
type requestOnlyStore struct {
	replies.Store
	requests map[int64]*models.Request
}

func (s requestOnlyStore) GetRequestDetailed(_ context.Context, requestID int64) (*models.Request, error) {
	return s.requests[requestID], nil
}

func TestHandleSubmitReplies_EmptyBodyIsValidated(t *testing.T) {
	svc := replies.NewService(replies.ServiceDependencies{
		Store:  requestOnlyStore{requests: map[int64]*models.Request{42: {ID: 42, TopicID: 7}}},
		Logger: logger.NewTestLogger(t),
	})
	router := newTestRouter(t, svc, Options{})
	headers := map[string]string{"X-Profile-ID": "A"}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"unknown request", "/requests/99/replies", http.StatusNotFound, "request not found"},
		{"known request", "/requests/42/replies", http.StatusBadRequest, "missing replies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, http.MethodPost, tt.path, "", headers)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestHandleSubmitReplies_EmptyBodyReachesServiceWithoutReplies(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "A", []models.ReplyEntry(nil)).
		Return(nil, errors.NewBadInputError("missing replies"))

	w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies", "",
		map[string]string{"X-Profile-ID": "A"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing replies", decodeBody(t, w)["error"])
	svc.AssertExpectations(t)
}

func TestHandleSubmitReplies_AnonymousCallerReachesService(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "", mock.Anything).
		Return(nil, errors.NewUnauthorizedError("caller identity is required to submit replies"))

	w := serve(newTestRouter(t, svc, Options{}), http.MethodPost, "/requests/42/replies",
		`{"replies":[{"question_id":1,"content":"x"}]}`, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, w)["error"])
}

// ==========================
// Identity
// ==========================

func TestIdentity_BearerToken(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "profile-7", mock.Anything).
		Return(&models.RequestInfo{RequestID: 42, ProfileID: "profile-7", Replies: []models.Reply{}}, nil)

	router := newTestRouter(t, svc, Options{Validator: stubValidator{tokens: map[string]string{"good": "profile-7"}}})

	w := serve(router, http.MethodPost, "/requests/42/replies", `{"replies":[]}`,
		map[string]string{"Authorization": "Bearer good", "X-Profile-ID": "spoofed"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, http.MethodPost, "/requests/42/replies", `{"replies":[]}`,
		map[string]string{"Authorization": "Bearer expired"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decodeBody(t, w)["error"])

	svc.AssertNumberOfCalls(t, "SubmitReplies", 1)
}

func TestIdentity_HeaderIgnoredWhenTokensRequired(t *testing.T) {
	svc := new(MockService)
	svc.On("SubmitReplies", mock.Anything, int64(42), "", mock.Anything).
		Return(nil, errors.NewUnauthorizedError("caller identity is required to submit replies"))

	router := newTestRouter(t, svc, Options{Validator: stubValidator{}, ProfileHeader: "X-Profile-ID"})

	w := serve(router, http.MethodPost, "/requests/42/replies", `{"replies":[]}`,
		map[string]string{"X-Profile-ID": "spoofed"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertExpectations(t)
}

// ==========================
// Search Route
// ==========================

func TestHandleSearchReplies(t *testing.T) {
	svc := new(MockService)
	svc.On("SearchReplies", mock.Anything, int64(42), "deploy", 5).Return([]models.ReplyHit{
		{Reply: models.Reply{ID: 1, Content: "deploy done"}, ProfileID: "A", Score: 1.5},
	}, nil)
	svc.On("SearchReplies", mock.Anything, int64(42), "", 0).Return(nil, errors.NewBadInputError("missing query"))

	router := newTestRouter(t, svc, Options{})

	w := serve(router, http.MethodGet, "/requests/42/replies/search?q=deploy&limit=5", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	hits := decodeBody(t, w)["hits"].([]interface{})
	require.Len(t, hits, 1)
	assert.Equal(t, "A", hits[0].(map[string]interface{})["profile_id"])

	w = serve(router, http.MethodGet, "/requests/42/replies/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing query", decodeBody(t, w)["error"])

	w = serve(router, http.MethodGet, "/requests/42/replies/search?q=deploy&limit=lots", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid limit", decodeBody(t, w)["error"])
}

// ==========================
// Health / Readiness / Recovery
// ==========================

func TestHealthAndReadiness(t *testing.T) {
	healthy := true
	router := newTestRouter(t, new(MockService), Options{
		Readiness: map[string]ReadinessCheck{
			"postgres": func(context.Context) error { return nil },
			"redis": func(context.Context) error {
				if healthy {
					return nil
				}
				return stderrors.New("dial tcp: connection refused")
			},
		},
	})

	w := serve(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decodeBody(t, w)["status"])

	healthy = false
	w = serve(router, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeBody(t, w)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["postgres"])
	assert.Contains(t, checks["redis"], "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	w := serve(newTestRouter(t, new(MockService), Options{}), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	svc := new(MockService)
	svc.On("GetRequestQuestions", mock.Anything, int64(1)).Return([]models.Question{}, nil)

	w := serve(newTestRouter(t, svc, Options{}), http.MethodGet, "/requests/1/questions", "",
		map[string]string{"X-Request-ID": "corr-123"})

	assert.Equal(t, "corr-123", w.Header().Get("X-Request-ID"))
}

func TestRecovery(t *testing.T) {
	svc := new(MockService)
	svc.On("GetRequestQuestions", mock.Anything, int64(1)).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(nil, nil)

	w := serve(newTestRouter(t, svc, Options{}), http.MethodGet, "/requests/1/questions", "", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", decodeBody(t, w)["error"])
}
