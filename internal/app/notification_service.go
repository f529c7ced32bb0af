// Package app wires the domain packages into the operations the HTTP API and
// the scheduler expose: generating notifications from rules, dispatching them
// over channels, and managing trigger schedules.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bookkeeping-notifier/internal/domain/notification"
	"bookkeeping-notifier/internal/domain/rules"
	"bookkeeping-notifier/internal/domain/user"
	idb "bookkeeping-notifier/internal/infra/database"
	"bookkeeping-notifier/internal/infra/logger"
)

// NotificationService generates and lists notifications.
type NotificationService interface {
	// Generate evaluates one rule type and materializes a notification per
	// qualifying user. It never dispatches.
	Generate(ctx context.Context, typeKey, channelKey string) (*GenerateResult, error)

	// Trigger runs Generate and then dispatches the rows it just created.
	Trigger(ctx context.Context, typeKey, channelKey string) (*TriggerResult, error)

	// Create materializes a single notification directly, bypassing rule
	// evaluation. Used by the admin dashboard for one-off messages.
	Create(ctx context.Context, req CreateRequest) (*notification.Notification, error)

	// ListPage returns one page of notifications with user summaries.
	ListPage(ctx context.Context, filter notification.ListFilter, page, limit int) ([]*notification.WithUser, int, error)
}

// GenerateResult reports one generation pass.
type GenerateResult struct {
	Type    string
	Channel notification.Channel
	Created int
	IDs     []string
}

// TriggerResult pairs a generation pass with its dispatch outcome.
type TriggerResult struct {
	Generated *GenerateResult
	Dispatch  *DispatchResult
}

// CreateRequest is a manual, single-notification creation.
type CreateRequest struct {
	UserID   string
	Type     string
	Channel  string
	Title    string
	Message  string
	Metadata notification.Metadata
}

type NotificationServiceImpl struct {
	notifications notification.Repository
	templates     notification.TemplateRepository
	users         user.Repository
	evaluator     *rules.Evaluator
	dispatcher    DispatchService
	log           *logrus.Entry
}

func NewNotificationServiceImpl(
	nr notification.Repository,
	tr notification.TemplateRepository,
	ur user.Repository,
	evaluator *rules.Evaluator,
	dispatcher DispatchService,
) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		notifications: nr,
		templates:     tr,
		users:         ur,
		evaluator:     evaluator,
		dispatcher:    dispatcher,
		log:           logger.Component("notification_service"),
	}
}

func (s *NotificationServiceImpl) Generate(ctx context.Context, typeKey, channelKey string) (*GenerateResult, error) {
	t, err := rules.ParseType(typeKey)
	if err != nil {
		return nil, err
	}
	requested, err := notification.ParseChannel(channelKey)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Generating notifications for type %s (requested channel %q)", t, channelKey)

	// Template lookup is tolerant: a missing row falls back to a generic
	// template so operators still see that the rule fired.
	tmpl, err := s.templates.GetByID(ctx, string(t))
	if err != nil {
		if !errors.Is(err, idb.ErrTemplateNotFound) {
			return nil, fmt.Errorf("failed to load template for %s: %w", t, err)
		}
		s.log.Warnf("No template found for type %s, using fallback", t)
		tmpl = &notification.Template{ID: string(t), Name: string(t), Template: notification.FallbackTemplate}
	}

	channel := requested
	if channel == "" {
		channel = tmpl.DefaultChannel()
	}
	// IN_APP rows need no delivery step; they are born visible.
	status := notification.StatusCreated
	if channel == notification.ChannelInApp {
		status = notification.StatusPublished
	}

	results, err := s.evaluator.Evaluate(ctx, t)
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(results))
	for id, r := range results {
		if r.Total > 0 {
			userIDs = append(userIDs, id)
		}
	}
	usersByID := make(map[string]*user.User, len(userIDs))
	if len(userIDs) > 0 {
		us, err := s.users.ListByIDs(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load users for %s: %w", t, err)
		}
		for _, u := range us {
			usersByID[u.ID] = u
		}
	}

	var notifications []*notification.Notification
	for _, id := range userIDs {
		r := results[id]
		u, ok := usersByID[id]
		if !ok {
			// Ledger rows can outlive their user; skip rather than fail the batch.
			s.log.Warnf("Skipping notification for unknown user %s", id)
			continue
		}

		vars := map[string]any{"type": string(t), "userName": u.DisplayName()}
		for k, v := range r.Variables {
			vars[k] = v
		}

		notifications = append(notifications, &notification.Notification{
			ID:       uuid.NewString(),
			UserID:   id,
			Type:     string(t),
			Channel:  channel,
			Status:   status,
			Title:    tmpl.Name,
			Message:  notification.Render(tmpl.Template, vars),
			Metadata: r.Metadata,
		})
	}

	if len(notifications) == 0 {
		s.log.Infof("No users qualified for type %s, nothing to create", t)
		return &GenerateResult{Type: string(t), Channel: channel}, nil
	}

	if err := s.notifications.BulkCreate(ctx, notifications); err != nil {
		return nil, fmt.Errorf("failed to create notifications for %s: %w", t, err)
	}

	ids := make([]string, 0, len(notifications))
	for _, n := range notifications {
		ids = append(ids, n.ID)
	}
	s.log.Infof("Created %d notifications for type %s on channel %s", len(notifications), t, channel)
	return &GenerateResult{Type: string(t), Channel: channel, Created: len(notifications), IDs: ids}, nil
}

func (s *NotificationServiceImpl) Trigger(ctx context.Context, typeKey, channelKey string) (*TriggerResult, error) {
	generated, err := s.Generate(ctx, typeKey, channelKey)
	if err != nil {
		return nil, err
	}

	// Drain every pending row of this type and channel, not just the ones
	// this pass created, so leftovers from generate-only calls or an
	// interrupted run go out too. The per-row status claim in the dispatcher
	// keeps overlapping trigger runs from double-sending.
	dispatch := &DispatchResult{}
	if generated.Channel != notification.ChannelInApp {
		dispatch, err = s.dispatcher.Send(ctx, notification.ListFilter{
			Status:  notification.StatusCreated,
			Type:    generated.Type,
			Channel: generated.Channel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to dispatch notifications for %s: %w", generated.Type, err)
		}
	}

	return &TriggerResult{Generated: generated, Dispatch: dispatch}, nil
}

func (s *NotificationServiceImpl) Create(ctx context.Context, req CreateRequest) (*notification.Notification, error) {
	channel, err := notification.ParseChannel(req.Channel)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		channel = notification.ChannelInApp
	}
	if req.UserID == "" {
		return nil, fmt.Errorf("userId is required")
	}
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	status := notification.StatusCreated
	if channel == notification.ChannelInApp {
		status = notification.StatusPublished
	}

	n := &notification.Notification{
		ID:       uuid.NewString(),
		UserID:   req.UserID,
		Type:     req.Type,
		Channel:  channel,
		Status:   status,
		Title:    req.Title,
		Message:  req.Message,
		Metadata: req.Metadata,
	}
	if err := s.notifications.BulkCreate(ctx, []*notification.Notification{n}); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	s.log.Infof("Created notification %s for user %s on channel %s", n.ID, n.UserID, n.Channel)
	return n, nil
}

func (s *NotificationServiceImpl) ListPage(ctx context.Context, filter notification.ListFilter, page, limit int) ([]*notification.WithUser, int, error) {
	return s.notifications.ListPage(ctx, filter, page, limit)
}
