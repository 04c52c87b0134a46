package replies

import (
	"context"
	stderrors "errors"

	"golang.org/x/sync/errgroup"

	"checkin-service/internal/common/errors"
	"checkin-service/internal/common/logger"
	"checkin-service/internal/common/metrics"
	"checkin-service/internal/models"
)

// Store is the persistence the service reads and writes through.
type Store interface {
	RequestLookup
	GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error)
	GetRequestReplies(ctx context.Context, requestID int64) ([]models.ReplyRecord, error)
	GetWhoHasReplied(ctx context.Context, requestID int64) ([]string, error)
	GetMemberRepliedStatus(ctx context.Context, requestID, topicID int64) ([]models.MemberReplyStatus, error)
	// AddRequestReplies writes the whole batch or nothing.
	AddRequestReplies(ctx context.Context, requestID int64, profileID string, replies []models.ReplyEntry) (*models.RequestInfo, error)
}

// Cache holds aggregated reply views. Every invalidation bumps the request's
// generation; SetReplies only stores a view built at the current generation.
type Cache interface {
	GetReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, bool, error)
	Generation(ctx context.Context, requestID int64) (int64, error)
	SetReplies(ctx context.Context, requestID int64, generation int64, groups []models.MemberReplyGroup) error
	InvalidateReplies(ctx context.Context, requestID int64) error
}

// Indexer makes stored replies searchable.
type Indexer interface {
	IndexReplies(ctx context.Context, info *models.RequestInfo) error
	SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error)
}

type ServiceDependencies struct {
	Store  Store
	Cache  Cache   // optional
	Index  Indexer // optional
	Logger logger.Logger
}

type Service struct {
	store     Store
	cache     Cache
	index     Indexer
	validator *Validator
	logger    logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		store:     deps.Store,
		cache:     deps.Cache,
		index:     deps.Index,
		validator: NewValidator(deps.Store),
		logger:    log.WithFields(map[string]interface{}{"component": "replies"}),
	}
}

// GetRequestDetail returns the request with the reply status of every topic member.
func (s *Service) GetRequestDetail(ctx context.Context, requestID int64) (*models.RequestDetail, error) {
	request, err := s.store.GetRequestDetailed(ctx, requestID)
	if err != nil {
		return nil, errors.NewStoreFailureError("failed to load request", err)
	}
	if request == nil || request.ID == 0 {
		return nil, errors.NewNotFoundError("request")
	}

	statuses, err := s.store.GetMemberRepliedStatus(ctx, request.ID, request.TopicID)
	if err != nil {
		return nil, errors.NewStoreFailureError("failed to load reply statuses", err)
	}

	return WithReplyStatuses(request, statuses), nil
}

func (s *Service) GetRequestQuestions(ctx context.Context, requestID int64) ([]models.Question, error) {
	questions, err := s.store.GetRequestQuestions(ctx, requestID)
	if err != nil {
		return nil, errors.NewStoreFailureError("failed to load questions", err)
	}
	if questions == nil {
		questions = []models.Question{}
	}
	return questions, nil
}

// GetRequestReplies returns the per-member reply view of a request, serving
// it from the cache when possible.
func (s *Service) GetRequestReplies(ctx context.Context, requestID int64) ([]models.MemberReplyGroup, error) {
	cacheable := false
	var generation int64
	if s.cache != nil {
		groups, ok, err := s.cache.GetReplies(ctx, requestID)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("reply cache read failed", map[string]interface{}{"requestId": requestID, "error": err})
		case ok:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return groups, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}

		// read before the store so a write committed meanwhile invalidates this view
		generation, err = s.cache.Generation(ctx, requestID)
		if err != nil {
			s.logger.Warn("reply cache generation read failed", map[string]interface{}{"requestId": requestID, "error": err})
		} else {
			cacheable = true
		}
	}

	var (
		flat          []models.ReplyRecord
		whoHasReplied []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		flat, err = s.store.GetRequestReplies(gctx, requestID)
		return err
	})
	g.Go(func() error {
		var err error
		whoHasReplied, err = s.store.GetWhoHasReplied(gctx, requestID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.NewStoreFailureError("failed to load replies", err)
	}

	groups := Aggregate(flat, whoHasReplied)
	metrics.ReplyGroups.Observe(float64(len(groups)))

	if cacheable {
		if err := s.cache.SetReplies(ctx, requestID, generation, groups); err != nil {
			s.logger.Warn("reply cache write failed", map[string]interface{}{"requestId": requestID, "error": err})
		}
	}

	return groups, nil
}

// SubmitReplies validates a batch and stores it for profileID. The store's
// result is returned unchanged.
func (s *Service) SubmitReplies(ctx context.Context, requestID int64, profileID string, batch []models.ReplyEntry) (*models.RequestInfo, error) {
	accepted, err := s.validator.Validate(ctx, requestID, batch)
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	if profileID == "" {
		err := errors.NewUnauthorizedError("caller identity is required to submit replies")
		s.recordRejection(err)
		return nil, err
	}

	info, err := s.store.AddRequestReplies(ctx, accepted.Request.ID, profileID, accepted.Replies)
	if err != nil || info == nil {
		metrics.RepliesSubmitted.WithLabelValues("failed").Inc()
		return nil, errors.NewStoreFailureError("failed to add replies", err)
	}
	metrics.RepliesSubmitted.WithLabelValues("accepted").Inc()

	log := s.logger.WithFields(map[string]interface{}{"requestId": accepted.Request.ID, "profileId": profileID})
	log.Info("replies stored", map[string]interface{}{"count": len(info.Replies)})

	if s.cache != nil {
		if err := s.cache.InvalidateReplies(ctx, accepted.Request.ID); err != nil {
			log.Warn("reply cache invalidation failed", map[string]interface{}{"error": err})
		}
	}
	if s.index != nil && len(info.Replies) > 0 {
		if err := s.index.IndexReplies(ctx, info); err != nil {
			log.Warn("reply indexing failed", map[string]interface{}{"error": err})
		}
	}

	return info, nil
}

// SearchReplies finds replies of a request whose content matches query.
func (s *Service) SearchReplies(ctx context.Context, requestID int64, query string, limit int) ([]models.ReplyHit, error) {
	if query == "" {
		return nil, errors.NewBadInputError("missing query")
	}
	if s.index == nil {
		return nil, errors.NewSearchQueryFailedError(stderrors.New("search index is not configured"))
	}

	hits, err := s.index.SearchReplies(ctx, requestID, query, limit)
	if err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewSearchQueryFailedError(err)
	}
	if hits == nil {
		hits = []models.ReplyHit{}
	}
	return hits, nil
}

func (s *Service) recordRejection(err error) {
	stdErr := errors.Normalize(err)
	if stdErr.Code == errors.ErrCodeStoreFailure {
		metrics.RepliesSubmitted.WithLabelValues("failed").Inc()
		return
	}
	metrics.RepliesSubmitted.WithLabelValues("rejected").Inc()
	metrics.ReplyRejections.WithLabelValues(string(stdErr.Code)).Inc()
}
