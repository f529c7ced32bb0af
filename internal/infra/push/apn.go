// Package push holds the APN delivery backend. The current implementation is
// a logging mock: it validates the token shape and records the would-be
// delivery without contacting Apple.
package push

import (
	"context"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"

	"bookkeeping-notifier/internal/infra/logger"
)

// Device tokens are hex; anything else is stripped before use.
var nonHexRe = regexp.MustCompile(`[^a-fA-F0-9]`)

// LogSender pretends to deliver push notifications. It fails on empty or
// non-hex tokens so dispatch outcomes stay realistic.
type LogSender struct {
	bundleID string
}

func NewLogSender(bundleID string) *LogSender {
	return &LogSender{bundleID: bundleID}
}

func (s *LogSender) SendPush(_ context.Context, deviceToken, alert string, payload map[string]any) error {
	token := nonHexRe.ReplaceAllString(deviceToken, "")
	if token == "" {
		return fmt.Errorf("device token %q contains no usable characters", deviceToken)
	}

	logger.Log.WithFields(logrus.Fields{
		"bundleId": s.bundleID,
		"token":    abbreviate(token),
		"payload":  payload,
	}).Infof("APN push: %s", alert)
	return nil
}

func abbreviate(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "..."
}
