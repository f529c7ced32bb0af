// Package scheduler provides the two scheduling backends behind the
// schedule.Client interface: Google Cloud Scheduler for deployed
// environments and an in-process cron runner for local development.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudscheduler "google.golang.org/api/cloudscheduler/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bookkeeping-notifier/internal/domain/schedule"
	"bookkeeping-notifier/internal/infra/config"
	"bookkeeping-notifier/internal/infra/logger"
)

// CloudClient drives Google Cloud Scheduler jobs that call the trigger
// endpoint over HTTP. Job bodies carry the base64 payload; the shared API
// token rides along as a header so replayed requests pass auth.
type CloudClient struct {
	service   *cloudscheduler.Service
	parent    string
	targetURL string
	apiToken  string
	timeZone  string
}

func NewCloudClient(ctx context.Context, cfg *config.AppConfig, targetURL string) (*CloudClient, error) {
	var opts []option.ClientOption
	if cfg.GCPCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCPCredentialsFile))
	}
	service, err := cloudscheduler.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud scheduler service: %w", err)
	}
	return &CloudClient{
		service:   service,
		parent:    fmt.Sprintf("projects/%s/locations/%s", cfg.GCPProjectID, cfg.GCPLocationID),
		targetURL: targetURL,
		apiToken:  cfg.APISecretToken,
		timeZone:  cfg.SchedulerTimeZone,
	}, nil
}

func (c *CloudClient) jobName(id string) string {
	return c.parent + "/jobs/" + id
}

func (c *CloudClient) buildJob(id, description, cronExpression string, p schedule.Payload) (*cloudscheduler.Job, error) {
	body, err := schedule.EncodePayload(p)
	if err != nil {
		return nil, err
	}
	return &cloudscheduler.Job{
		Name:        c.jobName(id),
		Description: description,
		Schedule:    cronExpression,
		TimeZone:    c.timeZone,
		HttpTarget: &cloudscheduler.HttpTarget{
			Uri:        c.targetURL,
			HttpMethod: "POST",
			Body:       body,
			Headers: map[string]string{
				"Content-Type": "application/json",
				"x-api-token":  c.apiToken,
			},
		},
	}, nil
}

func (c *CloudClient) CreateJob(ctx context.Context, id, description, cronExpression string, p schedule.Payload) error {
	job, err := c.buildJob(id, description, cronExpression, p)
	if err != nil {
		return err
	}
	_, err = c.service.Projects.Locations.Jobs.Create(c.parent, job).Context(ctx).Do()
	if err != nil {
		// A job with this id already exists; update it in place instead.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			logger.Log.Warnf("Scheduler job %s already exists, updating instead", id)
			return c.UpdateJob(ctx, id, description, cronExpression, p)
		}
		return fmt.Errorf("failed to create scheduler job %s: %w", id, err)
	}
	return nil
}

func (c *CloudClient) UpdateJob(ctx context.Context, id, description, cronExpression string, p schedule.Payload) error {
	job, err := c.buildJob(id, description, cronExpression, p)
	if err != nil {
		return err
	}
	_, err = c.service.Projects.Locations.Jobs.Patch(c.jobName(id), job).
		UpdateMask("description,schedule,timeZone,httpTarget").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update scheduler job %s: %w", id, err)
	}
	return nil
}

func (c *CloudClient) ListJobs(ctx context.Context) ([]*schedule.Job, error) {
	var jobs []*schedule.Job
	call := c.service.Projects.Locations.Jobs.List(c.parent).Context(ctx)
	err := call.Pages(ctx, func(resp *cloudscheduler.ListJobsResponse) error {
		for _, j := range resp.Jobs {
			jobs = append(jobs, c.toJob(j))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduler jobs: %w", err)
	}
	return jobs, nil
}

func (c *CloudClient) toJob(j *cloudscheduler.Job) *schedule.Job {
	job := &schedule.Job{
		ID:             strings.TrimPrefix(j.Name, c.parent+"/jobs/"),
		Description:    j.Description,
		CronExpression: j.Schedule,
		Enabled:        j.State == "ENABLED",
	}
	if j.HttpTarget != nil && j.HttpTarget.Body != "" {
		p, err := schedule.DecodePayload(j.HttpTarget.Body)
		if err != nil {
			logger.Log.Warnf("Scheduler job %s has an unreadable payload: %v", job.ID, err)
		} else {
			job.Payload = p
		}
	}
	if t, err := time.Parse(time.RFC3339, j.LastAttemptTime); err == nil && !t.IsZero() {
		job.LastRun = &t
	}
	if t, err := time.Parse(time.RFC3339, j.ScheduleTime); err == nil && !t.IsZero() {
		job.NextRun = &t
	}
	return job
}

func (c *CloudClient) DeleteJob(ctx context.Context, id string) error {
	_, err := c.service.Projects.Locations.Jobs.Delete(c.jobName(id)).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete scheduler job %s: %w", id, err)
	}
	return nil
}

func (c *CloudClient) PauseJob(ctx context.Context, id string) error {
	_, err := c.service.Projects.Locations.Jobs.Pause(c.jobName(id), &cloudscheduler.PauseJobRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to pause scheduler job %s: %w", id, err)
	}
	return nil
}

func (c *CloudClient) ResumeJob(ctx context.Context, id string) error {
	_, err := c.service.Projects.Locations.Jobs.Resume(c.jobName(id), &cloudscheduler.ResumeJobRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to resume scheduler job %s: %w", id, err)
	}
	return nil
}
