package email

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"bookkeeping-notifier/internal/domain/delivery"
	"bookkeeping-notifier/internal/infra/logger"
)

// ErrNoSentEmails is returned by Latest when nothing has been written yet.
var ErrNoSentEmails = fmt.Errorf("no sent emails found")

// FileSender writes outbound emails as numbered HTML files instead of
// delivering them. Used in development; the mock inspection endpoint reads
// the most recent file back.
type FileSender struct {
	dir string
	mu  sync.Mutex
}

func NewFileSender(dir string) (*FileSender, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sent emails directory: %w", err)
	}
	return &FileSender{dir: dir}, nil
}

func (s *FileSender) SendEmail(_ context.Context, msg delivery.EmailMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.nextIndex()
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("email_%d.html", next))
	if err := os.WriteFile(path, []byte(msg.HTML), 0o644); err != nil {
		return fmt.Errorf("failed to write email file: %w", err)
	}

	logger.Log.Infof("Email for %q (subject %q) written to %s", msg.To, msg.Subject, path)
	return nil
}

// Latest returns the HTML of the most recently written email.
func (s *FileSender) Latest() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexes, err := s.indexes()
	if err != nil {
		return "", err
	}
	if len(indexes) == 0 {
		return "", ErrNoSentEmails
	}
	last := indexes[len(indexes)-1]
	b, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("email_%d.html", last)))
	if err != nil {
		return "", fmt.Errorf("failed to read latest email file: %w", err)
	}
	return string(b), nil
}

func (s *FileSender) nextIndex() (int, error) {
	indexes, err := s.indexes()
	if err != nil {
		return 0, err
	}
	if len(indexes) == 0 {
		return 1, nil
	}
	return indexes[len(indexes)-1] + 1, nil
}

func (s *FileSender) indexes() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sent emails directory: %w", err)
	}
	var indexes []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "email_") || !strings.HasSuffix(name, ".html") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "email_"), ".html"))
		if err != nil {
			continue
		}
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)
	return indexes, nil
}
