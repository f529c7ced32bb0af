package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"bookkeeping-notifier/internal/domain/schedule"
	"bookkeeping-notifier/internal/infra/logger"
)

// TriggerFunc is invoked when a local job fires.
type TriggerFunc func(ctx context.Context, p schedule.Payload)

type localJob struct {
	description    string
	cronExpression string
	payload        schedule.Payload
	enabled        bool
	entryID        cron.EntryID
	lastRun        *time.Time
}

// LocalClient runs schedules in-process with a cron runner. State lives in
// memory only, so jobs vanish on restart. Development use.
type LocalClient struct {
	mu      sync.Mutex
	runner  *cron.Cron
	jobs    map[string]*localJob
	trigger TriggerFunc
}

func NewLocalClient(tz string, trigger TriggerFunc) (*LocalClient, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler time zone %q: %w", tz, err)
	}
	return &LocalClient{
		runner:  cron.New(cron.WithLocation(loc)),
		jobs:    make(map[string]*localJob),
		trigger: trigger,
	}, nil
}

func (c *LocalClient) Start() { c.runner.Start() }

func (c *LocalClient) Stop() { <-c.runner.Stop().Done() }

func (c *LocalClient) schedule(id string, j *localJob) error {
	entryID, err := c.runner.AddFunc(j.cronExpression, func() {
		now := time.Now()

		c.mu.Lock()
		j.lastRun = &now
		c.mu.Unlock()

		logger.Log.Infof("Local scheduler firing job %s (%s)", id, j.description)
		c.trigger(context.Background(), j.payload)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", id, err)
	}
	j.entryID = entryID
	return nil
}

func (c *LocalClient) CreateJob(_ context.Context, id, description, cronExpression string, p schedule.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.jobs[id]; ok {
		return fmt.Errorf("scheduler job %s already exists", id)
	}
	j := &localJob{description: description, cronExpression: cronExpression, payload: p, enabled: true}
	if err := c.schedule(id, j); err != nil {
		return err
	}
	c.jobs[id] = j
	return nil
}

func (c *LocalClient) UpdateJob(_ context.Context, id, description, cronExpression string, p schedule.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return fmt.Errorf("scheduler job %s not found", id)
	}
	if j.enabled {
		c.runner.Remove(j.entryID)
	}
	j.description = description
	j.cronExpression = cronExpression
	j.payload = p
	if j.enabled {
		return c.schedule(id, j)
	}
	return nil
}

func (c *LocalClient) ListJobs(_ context.Context) ([]*schedule.Job, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	jobs := make([]*schedule.Job, 0, len(c.jobs))
	for id, j := range c.jobs {
		job := &schedule.Job{
			ID:             id,
			Description:    j.description,
			CronExpression: j.cronExpression,
			Payload:        j.payload,
			Enabled:        j.enabled,
			LastRun:        j.lastRun,
		}
		if j.enabled {
			next := c.runner.Entry(j.entryID).Next
			if !next.IsZero() {
				job.NextRun = &next
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (c *LocalClient) DeleteJob(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return fmt.Errorf("scheduler job %s not found", id)
	}
	if j.enabled {
		c.runner.Remove(j.entryID)
	}
	delete(c.jobs, id)
	return nil
}

func (c *LocalClient) PauseJob(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return fmt.Errorf("scheduler job %s not found", id)
	}
	if j.enabled {
		c.runner.Remove(j.entryID)
		j.enabled = false
	}
	return nil
}

func (c *LocalClient) ResumeJob(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	j, ok := c.jobs[id]
	if !ok {
		return fmt.Errorf("scheduler job %s not found", id)
	}
	if !j.enabled {
		j.enabled = true
		return c.schedule(id, j)
	}
	return nil
}
