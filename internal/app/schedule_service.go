package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"bookkeeping-notifier/internal/domain/notification"
	"bookkeeping-notifier/internal/domain/rules"
	"bookkeeping-notifier/internal/domain/schedule"
	"bookkeeping-notifier/internal/infra/logger"
)

// ScheduleService manages the cron jobs that fire the trigger endpoint.
type ScheduleService interface {
	CreateSchedule(ctx context.Context, typeKey, channelKey, cronExpression string) (*schedule.Job, error)
	UpdateSchedule(ctx context.Context, id, typeKey, channelKey, cronExpression string) error
	ListSchedules(ctx context.Context) ([]*schedule.Job, error)
	DeleteSchedule(ctx context.Context, id string) error
	ToggleSchedule(ctx context.Context, id string, enabled bool) error
}

type ScheduleServiceImpl struct {
	client schedule.Client
	log    *logrus.Entry
}

func NewScheduleServiceImpl(client schedule.Client) *ScheduleServiceImpl {
	return &ScheduleServiceImpl{client: client, log: logger.Component("schedule_service")}
}

// validate checks the schedule inputs and returns the parsed payload plus the
// job description. Cron validation happens here so the backend never sees a
// bad expression.
func (s *ScheduleServiceImpl) validate(typeKey, channelKey, cronExpression string) (schedule.Payload, string, error) {
	t, err := rules.ParseType(typeKey)
	if err != nil {
		return schedule.Payload{}, "", err
	}
	channel, err := notification.ParseChannel(channelKey)
	if err != nil {
		return schedule.Payload{}, "", err
	}
	if _, err := cron.ParseStandard(cronExpression); err != nil {
		return schedule.Payload{}, "", fmt.Errorf("invalid cron expression %q: %w", cronExpression, err)
	}

	description := fmt.Sprintf("Schedule for %s", t)
	if channel != "" {
		description = fmt.Sprintf("Schedule for %s via %s", t, channel)
	}
	return schedule.Payload{Type: string(t), Channel: string(channel)}, description, nil
}

func (s *ScheduleServiceImpl) CreateSchedule(ctx context.Context, typeKey, channelKey, cronExpression string) (*schedule.Job, error) {
	payload, description, err := s.validate(typeKey, channelKey, cronExpression)
	if err != nil {
		return nil, err
	}

	// Millis plus a uuid fragment keeps ids unique even when two schedules
	// are created in the same millisecond.
	id := fmt.Sprintf("sched-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
	if err := s.client.CreateJob(ctx, id, description, cronExpression, payload); err != nil {
		return nil, err
	}

	s.log.Infof("Created schedule %s: %q for type %s", id, cronExpression, payload.Type)
	return &schedule.Job{
		ID:             id,
		Description:    description,
		CronExpression: cronExpression,
		Payload:        payload,
		Enabled:        true,
	}, nil
}

func (s *ScheduleServiceImpl) UpdateSchedule(ctx context.Context, id, typeKey, channelKey, cronExpression string) error {
	payload, description, err := s.validate(typeKey, channelKey, cronExpression)
	if err != nil {
		return err
	}
	if err := s.client.UpdateJob(ctx, id, description, cronExpression, payload); err != nil {
		return err
	}
	s.log.Infof("Updated schedule %s: %q for type %s", id, cronExpression, payload.Type)
	return nil
}

func (s *ScheduleServiceImpl) ListSchedules(ctx context.Context) ([]*schedule.Job, error) {
	return s.client.ListJobs(ctx)
}

func (s *ScheduleServiceImpl) DeleteSchedule(ctx context.Context, id string) error {
	if err := s.client.DeleteJob(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Deleted schedule %s", id)
	return nil
}

func (s *ScheduleServiceImpl) ToggleSchedule(ctx context.Context, id string, enabled bool) error {
	var err error
	if enabled {
		err = s.client.ResumeJob(ctx, id)
	} else {
		err = s.client.PauseJob(ctx, id)
	}
	if err != nil {
		return err
	}
	s.log.Infof("Schedule %s enabled=%t", id, enabled)
	return nil
}
