package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leadscout/leadscout-api/internal/cache"
	"github.com/leadscout/leadscout-api/internal/constants"
	"github.com/leadscout/leadscout-api/internal/logger"
	"github.com/leadscout/leadscout-api/internal/models"
	"github.com/leadscout/leadscout-api/internal/queue"
	"github.com/leadscout/leadscout-api/internal/repository"
)

// TrackingService 邮件追踪业务服务
type TrackingService struct {
	repo        repository.TrackingRepository
	licenseRepo repository.LicenseRepository
	userRepo    repository.UserRepository
	queueClient *queue.Client
	tokenSecret []byte
	dailyQuota  int64
}

// NewTrackingService 创建追踪服务
func NewTrackingService(
	repo repository.TrackingRepository,
	licenseRepo repository.LicenseRepository,
	userRepo repository.UserRepository,
	queueClient *queue.Client,
	tokenSecret string,
	dailyQuota int64,
) *TrackingService {
	if dailyQuota <= 0 {
		dailyQuota = constants.TrackingFreeDailyQuota
	}
	return &TrackingService{
		repo:        repo,
		licenseRepo: licenseRepo,
		userRepo:    userRepo,
		queueClient: queueClient,
		tokenSecret: []byte(tokenSecret),
		dailyQuota:  dailyQuota,
	}
}

// trackingClaims 像素令牌载荷，uid 标识归属用户、re 为收件人邮箱
type trackingClaims struct {
	UID   uint   `json:"uid"`
	Email string `json:"re"`
	jwt.RegisteredClaims
}

// BuildToken 为收件人生成像素追踪令牌
func (s *TrackingService) BuildToken(userID uint, recipientEmail string) (string, error) {
	claims := trackingClaims{
		UID:   userID,
		Email: strings.ToLower(strings.TrimSpace(recipientEmail)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.tokenSecret)
}

func (s *TrackingService) parseToken(raw string) (*trackingClaims, error) {
	claims := &trackingClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.tokenSecret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UID == 0 {
		return nil, ErrInvalidAction
	}
	return claims, nil
}

// TrackingRecordInput 追踪事件记录输入
type TrackingRecordInput struct {
	Token     string
	TargetURL string
	UserAgent string
	ClientIP  string
}

// RecordOpen 记录邮件打开事件。返回错误仅供日志使用，像素响应
// 始终成功。
func (s *TrackingService) RecordOpen(ctx context.Context, input TrackingRecordInput) error {
	return s.record(ctx, constants.TrackingEventOpen, input)
}

// RecordClick 记录链接点击事件并返回跳转地址。目标地址非法时返回
// 错误，事件落库失败不阻断跳转。
func (s *TrackingService) RecordClick(ctx context.Context, input TrackingRecordInput) (string, error) {
	target := strings.TrimSpace(input.TargetURL)
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", ErrInvalidAction
	}
	if err := s.record(ctx, constants.TrackingEventClick, input); err != nil {
		return target, err
	}
	return target, nil
}

func (s *TrackingService) record(ctx context.Context, event string, input TrackingRecordInput) error {
	claims, err := s.parseToken(input.Token)
	if err != nil {
		return err
	}

	allowed, err := s.withinQuota(ctx, claims.UID)
	if err != nil {
		logger.Warnw("tracking_quota_check_failed", "user_id", claims.UID, "error", err)
	} else if !allowed {
		return ErrTrackingQuotaExceeded
	}

	if err := s.repo.CreateEvent(&models.TrackingEvent{
		Token:          strings.TrimSpace(input.Token),
		UserID:         claims.UID,
		Event:          event,
		RecipientEmail: claims.Email,
		TargetURL:      strings.TrimSpace(input.TargetURL),
		UserAgent:      input.UserAgent,
		ClientIP:       input.ClientIP,
		OccurredAt:     time.Now(),
	}); err != nil {
		return err
	}

	if s.queueClient != nil {
		if err := s.queueClient.EnqueueTrackingAggregate(queue.TrackingAggregatePayload{
			UserID: claims.UID,
		}); err != nil {
			logger.Warnw("tracking_aggregate_enqueue_failed", "user_id", claims.UID, "error", err)
		}
	}
	return nil
}

// withinQuota 免费版每日事件额度检查，持有生效中付费授权的用户不限量
func (s *TrackingService) withinQuota(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrNotFound
	}
	paid, err := s.licenseRepo.HasActivePaidByEmail(user.Email, time.Now())
	if err != nil {
		return false, err
	}
	if paid {
		return true, nil
	}

	day := time.Now().Format("20060102")
	key := fmt.Sprintf("tracking:quota:%d:%s", userID, day)
	count, handled, err := cache.IncrWithTTL(ctx, key, 48*time.Hour)
	if err != nil {
		return false, err
	}
	if handled {
		return count <= s.dailyQuota, nil
	}

	// 缓存未启用时按库内当日事件数兜底
	startOfDay := time.Now().Truncate(24 * time.Hour)
	dbCount, err := s.repo.CountEventsByUserSince(userID, startOfDay)
	if err != nil {
		return false, err
	}
	return dbCount < s.dailyQuota, nil
}

// Aggregate 聚合指定用户的收件人级打点统计
func (s *TrackingService) Aggregate(userID uint) error {
	return s.repo.AggregateRecipientStats(userID)
}

// AggregateRecentlyActive 聚合近期有事件的全部用户，供定时任务使用
func (s *TrackingService) AggregateRecentlyActive(since time.Time) error {
	userIDs, err := s.repo.ListUserIDsWithEventsSince(since)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := s.repo.AggregateRecipientStats(userID); err != nil {
			logger.Errorw("tracking_aggregate_failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

// ListStats 分页查询收件人统计
func (s *TrackingService) ListStats(userID uint, page, pageSize int) ([]models.TrackingRecipientStat, int64, error) {
	return s.repo.ListRecipientStats(userID, page, pageSize)
}

// ListEvents 分页查询事件明细
func (s *TrackingService) ListEvents(filter repository.TrackingEventListFilter) ([]models.TrackingEvent, int64, error) {
	return s.repo.ListEvents(filter)
}
