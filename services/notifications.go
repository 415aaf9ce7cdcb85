package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/utils"

	"github.com/google/uuid"
)

// DispatchTimeout bounds a single detached fan-out task.
const DispatchTimeout = 30 * time.Second

// NotificationPusher delivers a stored notification to connected clients.
type NotificationPusher interface {
	PushToUser(userID string, n *models.Notification)
}

type NotificationInput struct {
	UserID string
	Type   string
	Title  string
	Body   string
	Data   map[string]any
}

type NotifyResult struct {
	Success      bool
	Notification *models.Notification
}

type NotificationService struct {
	repo   NotificationRepository
	pusher NotificationPusher
	now    func() time.Time
	wg     sync.WaitGroup
}

func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

func (s *NotificationService) SetClock(now func() time.Time) {
	s.now = now
}

// SetPusher attaches realtime delivery. Safe to leave unset.
func (s *NotificationService) SetPusher(p NotificationPusher) {
	s.pusher = p
}

// CreateNotification stores and pushes a notification. Failures are logged
// and reported through NotifyResult, never returned.
func (s *NotificationService) CreateNotification(ctx context.Context, in NotificationInput) NotifyResult {
	data := in.Data
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		utils.SafeError("Notification data for user %s not encodable: %v", utils.MaskID(in.UserID), err)
		return NotifyResult{}
	}

	now := s.now()
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Body:      in.Body,
		Data:      raw,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		utils.SafeError("Failed to create %s notification for user %s: %v", in.Type, utils.MaskID(in.UserID), err)
		return NotifyResult{}
	}

	if s.pusher != nil {
		s.pusher.PushToUser(n.UserID, n)
	}

	return NotifyResult{Success: true, Notification: n}
}

// Dispatch runs fn in a detached goroutine with its own timeout. Errors and
// panics are logged and never reach the caller.
func (s *NotificationService) Dispatch(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				utils.SafeError("Dispatch %s panicked: %v", name, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			utils.SafeError("Dispatch %s failed: %v", name, err)
		}
	}()
}

// Wait blocks until every dispatched task has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

// NotifyUsers sends the same notification to each user and returns how many
// were stored.
func (s *NotificationService) NotifyUsers(ctx context.Context, userIDs []string, in NotificationInput) int {
	sent := 0
	for _, id := range userIDs {
		in.UserID = id
		if s.CreateNotification(ctx, in).Success {
			sent++
		}
	}
	return sent
}

// ============================================================================
// INBOX
// ============================================================================

const maxNotificationPage = 100

func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > maxNotificationPage {
		limit = maxNotificationPage
	}
	list, err := s.repo.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.repo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: notification %s", ErrNotFound, id)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}

// PurgeRead deletes read notifications older than the given age.
func (s *NotificationService) PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.repo.PurgeReadNotifications(ctx, s.now().Add(-olderThan))
}
