package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"bookkeeping-notifier/internal/app"
	"bookkeeping-notifier/internal/domain/notification"
	idb "bookkeeping-notifier/internal/infra/database"
	"bookkeeping-notifier/internal/infra/email"
)

// Pagination defaults for the notification listing.
const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type triggerRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

func (s *Server) triggerNotifications(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	result, err := s.notifications.Trigger(c.Request.Context(), req.Type, req.Channel)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":     result.Generated.Type,
		"channel":  result.Generated.Channel,
		"created":  result.Generated.Created,
		"dispatch": result.Dispatch,
	})
}

func (s *Server) generateNotifications(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}

	result, err := s.notifications.Generate(c.Request.Context(), req.Type, req.Channel)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"type":    result.Type,
		"channel": result.Channel,
		"created": result.Created,
		"ids":     result.IDs,
	})
}

type sendRequest struct {
	NotificationIDs []string `json:"notificationIds"`
	Status          string   `json:"status"`
	Type            string   `json:"type"`
	Channel         string   `json:"channel"`
	UserID          string   `json:"userId"`
	Message         string   `json:"message"`
}

func (s *Server) sendNotifications(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	filter, err := buildListFilter(req.NotificationIDs, req.Status, req.Type, req.Channel, req.UserID, req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Only pending rows are sendable; the dispatcher's status claim enforces
	// this per row, the filter just keeps the candidate list small.
	if len(filter.IDs) == 0 && filter.Status == "" {
		filter.Status = notification.StatusCreated
	}

	result, err := s.dispatcher.Send(c.Request.Context(), filter)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createNotificationRequest struct {
	UserID   string                `json:"userId"`
	Type     string                `json:"type"`
	Channel  string                `json:"channel"`
	Title    string                `json:"title"`
	Message  string                `json:"message"`
	Metadata notification.Metadata `json:"metadata"`
}

func (s *Server) createNotification(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	n, err := s.notifications.Create(c.Request.Context(), app.CreateRequest{
		UserID:   req.UserID,
		Type:     req.Type,
		Channel:  req.Channel,
		Title:    req.Title,
		Message:  req.Message,
		Metadata: req.Metadata,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, notificationJSON(n, nil))
}

func (s *Server) listNotifications(c *gin.Context) {
	page, err := positiveQueryInt(c, "page", defaultPage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := positiveQueryInt(c, "limit", defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter, err := buildListFilter(nil,
		c.Query("status"), c.Query("type"), c.Query("channel"), c.Query("userId"), c.Query("message"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, total, err := s.notifications.ListPage(c.Request.Context(), filter, page, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}

	items := make([]gin.H, 0, len(results))
	for _, nw := range results {
		items = append(items, notificationJSON(&nw.Notification, &nw.User))
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"meta": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

func (s *Server) listTemplates(c *gin.Context) {
	templates, err := s.templates.List(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(templates))
	for _, t := range templates {
		items = append(items, templateJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

type updateTemplateRequest struct {
	Name     string   `json:"name"`
	Template string   `json:"template"`
	Channels []string `json:"channels"`
}

func (s *Server) updateTemplate(c *gin.Context) {
	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Template == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template is required"})
		return
	}

	channels := make([]notification.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		ch, err := notification.ParseChannel(raw)
		if err != nil || ch == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel: " + raw})
			return
		}
		channels = append(channels, ch)
	}

	t := &notification.Template{
		ID:       c.Param("id"),
		Name:     req.Name,
		Template: req.Template,
		Channels: channels,
	}
	if err := s.templates.Update(c.Request.Context(), t); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, templateJSON(t))
}

func (s *Server) latestEmail(c *gin.Context) {
	if s.fileSender == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email mock is only available with the file email backend"})
		return
	}
	html, err := s.fileSender.Latest()
	if err != nil {
		if errors.Is(err, email.ErrNoSentEmails) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no sent emails found"})
			return
		}
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// buildListFilter validates enum fields and assembles the repository filter.
func buildListFilter(ids []string, status, typeKey, channel, userID, message string) (notification.ListFilter, error) {
	st, err := notification.ParseStatus(status)
	if err != nil {
		return notification.ListFilter{}, err
	}
	ch, err := notification.ParseChannel(channel)
	if err != nil {
		return notification.ListFilter{}, err
	}
	return notification.ListFilter{
		IDs:             ids,
		Status:          st,
		Type:            strings.TrimSpace(typeKey),
		Channel:         ch,
		UserID:          strings.TrimSpace(userID),
		MessageContains: strings.TrimSpace(message),
	}, nil
}

func positiveQueryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New(key + " must be a positive integer")
	}
	return n, nil
}

func notificationJSON(n *notification.Notification, u *notification.UserSummary) gin.H {
	item := gin.H{
		"id":        n.ID,
		"userId":    n.UserID,
		"type":      n.Type,
		"channel":   n.Channel,
		"status":    n.Status,
		"title":     n.Title,
		"message":   n.Message,
		"metadata":  n.Metadata,
		"createdAt": n.CreatedAt.Format(time.RFC3339),
	}
	if n.SentAt.Valid {
		item["sentAt"] = n.SentAt.Time.Format(time.RFC3339)
	}
	if u != nil {
		userItem := gin.H{"email": u.Email, "firstName": u.FirstName}
		if u.LastName.Valid {
			userItem["lastName"] = u.LastName.String
		}
		item["user"] = userItem
	}
	return item
}

func templateJSON(t *notification.Template) gin.H {
	return gin.H{
		"id":       t.ID,
		"name":     t.Name,
		"template": t.Template,
		"channels": t.Channels,
	}
}

// writeError maps service errors onto HTTP statuses. Validation failures from
// the parse helpers arrive as plain errors and read as 400s.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, idb.ErrUserNotFound), errors.Is(err, idb.ErrTemplateNotFound),
		errors.Is(err, idb.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case strings.Contains(err.Error(), "unknown notification"),
		strings.Contains(err.Error(), "is required"),
		strings.Contains(err.Error(), "invalid cron expression"):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
