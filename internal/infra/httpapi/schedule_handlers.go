package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookkeeping-notifier/internal/domain/schedule"
)

// scheduleRequest uses the dashboard's field names: notificationId is the
// notification type key, channelId the delivery channel.
type scheduleRequest struct {
	NotificationID string `json:"notificationId"`
	ChannelID      string `json:"channelId"`
	CronExpression string `json:"cronExpression"`
}

func (s *Server) listSchedules(c *gin.Context) {
	jobs, err := s.schedules.ListSchedules(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		items = append(items, scheduleJSON(j))
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) createSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.NotificationID == "" || req.CronExpression == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notificationId and cronExpression are required"})
		return
	}

	job, err := s.schedules.CreateSchedule(c.Request.Context(), req.NotificationID, req.ChannelID, req.CronExpression)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, scheduleJSON(job))
}

func (s *Server) updateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.NotificationID == "" || req.CronExpression == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "notificationId and cronExpression are required"})
		return
	}

	if err := s.schedules.UpdateSchedule(c.Request.Context(), c.Param("id"), req.NotificationID, req.ChannelID, req.CronExpression); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (s *Server) deleteSchedule(c *gin.Context) {
	if err := s.schedules.DeleteSchedule(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) toggleSchedule(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enabled is required"})
		return
	}

	if err := s.schedules.ToggleSchedule(c.Request.Context(), c.Param("id"), *req.Enabled); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "enabled": *req.Enabled})
}

func scheduleJSON(j *schedule.Job) gin.H {
	item := gin.H{
		"id":             j.ID,
		"description":    j.Description,
		"cronExpression": j.CronExpression,
		"notificationId": j.Payload.Type,
		"channelId":      j.Payload.Channel,
		"enabled":        j.Enabled,
	}
	if j.LastRun != nil {
		item["lastRun"] = j.LastRun.Format(time.RFC3339)
	}
	if j.NextRun != nil {
		item["nextRun"] = j.NextRun.Format(time.RFC3339)
	}
	return item
}
