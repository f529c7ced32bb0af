package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/domain/notification"
	"bookkeeping-notifier/internal/domain/user"
	"bookkeeping-notifier/internal/infra/logger"
)

// DispatchService pushes pending notifications out over their channel.
type DispatchService interface {
	// Send dispatches every matching notification still in CREATED. A filter
	// naming explicit ids is an operator retry: FAILED rows and rows stuck
	// in SENDING become eligible again. Rows a concurrent pass already
	// claimed are skipped, not errors.
	Send(ctx context.Context, filter notification.ListFilter) (*DispatchResult, error)
}

// DispatchResult summarizes one dispatch pass. Skipped counts rows that
// matched the filter but were claimed by another pass or already terminal.
type DispatchResult struct {
	Published int `json:"published"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Total     int `json:"total"`
}

type DispatchServiceImpl struct {
	notifications notification.Repository
	users         user.Repository
	composer      delivery.EmailComposer
	emails        delivery.EmailSender
	push          delivery.PushSender
	linkURL       string
	log           *logrus.Entry
}

func NewDispatchServiceImpl(
	nr notification.Repository,
	ur user.Repository,
	composer delivery.EmailComposer,
	emails delivery.EmailSender,
	push delivery.PushSender,
	linkURL string,
) *DispatchServiceImpl {
	return &DispatchServiceImpl{
		notifications: nr,
		users:         ur,
		composer:      composer,
		emails:        emails,
		push:          push,
		linkURL:       linkURL,
		log:           logger.Component("dispatch_service"),
	}
}

func (s *DispatchServiceImpl) Send(ctx context.Context, filter notification.ListFilter) (*DispatchResult, error) {
	candidates, err := s.notifications.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for dispatch: %w", err)
	}

	explicit := len(filter.IDs) > 0
	result := &DispatchResult{Total: len(candidates)}
	for _, n := range candidates {
		from := claimableFrom(n, explicit)
		switch n.Channel {
		case notification.ChannelInApp:
			s.dispatchInApp(ctx, n, from, result)
		case notification.ChannelEmail:
			s.dispatchEmail(ctx, n, from, result)
		case notification.ChannelAPN:
			s.dispatchPush(ctx, n, from, result)
		default:
			s.log.Errorf("Notification %s has unknown channel %q, marking FAILED", n.ID, n.Channel)
			s.finish(ctx, n.ID, notification.StatusFailed)
			result.Failed++
		}
	}

	s.log.Infof("Dispatch pass finished: %d published, %d sent, %d failed, %d skipped of %d",
		result.Published, result.Sent, result.Failed, result.Skipped, result.Total)
	return result, nil
}

// claimableFrom picks the status a dispatch claim starts from. A send scoped
// to explicit ids is an operator retry, so a FAILED row or one stuck in
// SENDING is claimable again; everything else only moves out of CREATED. The
// claim itself still compares-and-swaps, so a row another pass touched in the
// meantime loses cleanly.
func claimableFrom(n *notification.Notification, explicit bool) notification.Status {
	if explicit && (n.Status == notification.StatusFailed || n.Status == notification.StatusSending) {
		return n.Status
	}
	return notification.StatusCreated
}

// dispatchInApp publishes an in-app row. Nothing leaves the system; the row
// just becomes visible to the user's feed.
func (s *DispatchServiceImpl) dispatchInApp(ctx context.Context, n *notification.Notification, from notification.Status, result *DispatchResult) {
	won, err := s.notifications.ClaimStatus(ctx, n.ID, from, notification.StatusPublished)
	if err != nil {
		s.log.Errorf("Failed to publish in-app notification %s: %v", n.ID, err)
		result.Failed++
		return
	}
	if !won {
		result.Skipped++
		return
	}
	result.Published++
}

func (s *DispatchServiceImpl) dispatchEmail(ctx context.Context, n *notification.Notification, from notification.Status, result *DispatchResult) {
	won, err := s.notifications.ClaimStatus(ctx, n.ID, from, notification.StatusSending)
	if err != nil {
		s.log.Errorf("Failed to claim notification %s for email dispatch: %v", n.ID, err)
		result.Failed++
		return
	}
	if !won {
		result.Skipped++
		return
	}

	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.log.Errorf("Failed to load user %s for email notification %s: %v", n.UserID, n.ID, err)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}

	composed, err := s.composer.Compose(delivery.ComposeRequest{
		RecipientName: u.DisplayName(),
		MessageBody:   n.Message,
		LinkURL:       s.linkURL,
	})
	if err != nil {
		s.log.Errorf("Failed to compose email for notification %s: %v", n.ID, err)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}

	subject := composed.Subject
	if n.Title != "" {
		subject = n.Title
	}

	err = s.emails.SendEmail(ctx, delivery.EmailMessage{
		To:      u.Email,
		Subject: subject,
		HTML:    composed.HTML,
		Text:    composed.Text,
	})
	if err != nil {
		s.log.Errorf("Failed to send email for notification %s to %s: %v", n.ID, u.Email, err)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}

	if err := s.notifications.SetStatus(ctx, n.ID, notification.StatusSent,
		sql.NullTime{Time: time.Now(), Valid: true}); err != nil {
		s.log.Errorf("Email for notification %s delivered but status update failed: %v", n.ID, err)
	}
	result.Sent++
}

func (s *DispatchServiceImpl) dispatchPush(ctx context.Context, n *notification.Notification, from notification.Status, result *DispatchResult) {
	won, err := s.notifications.ClaimStatus(ctx, n.ID, from, notification.StatusSending)
	if err != nil {
		s.log.Errorf("Failed to claim notification %s for push dispatch: %v", n.ID, err)
		result.Failed++
		return
	}
	if !won {
		result.Skipped++
		return
	}

	u, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		s.log.Errorf("Failed to load user %s for push notification %s: %v", n.UserID, n.ID, err)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}
	if !u.DeviceToken.Valid || u.DeviceToken.String == "" {
		s.log.Warnf("User %s has no device token, marking notification %s FAILED", u.ID, n.ID)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}

	payload := map[string]any{"type": n.Type}
	for k, v := range n.Metadata {
		payload[k] = v
	}
	if err := s.push.SendPush(ctx, u.DeviceToken.String, n.Message, payload); err != nil {
		s.log.Errorf("Failed to send push for notification %s: %v", n.ID, err)
		s.finish(ctx, n.ID, notification.StatusFailed)
		result.Failed++
		return
	}

	if err := s.notifications.SetStatus(ctx, n.ID, notification.StatusSent,
		sql.NullTime{Time: time.Now(), Valid: true}); err != nil {
		s.log.Errorf("Push for notification %s delivered but status update failed: %v", n.ID, err)
	}
	result.Sent++
}

func (s *DispatchServiceImpl) finish(ctx context.Context, id string, status notification.Status) {
	if err := s.notifications.SetStatus(ctx, id, status, sql.NullTime{}); err != nil {
		s.log.Errorf("Failed to set notification %s status to %s: %v", id, status, err)
	}
}
