package database

import "fmt"

// Sentinel errors shared by the repositories.
var (
	ErrUserNotFound         = fmt.Errorf("user not found")
	ErrTemplateNotFound     = fmt.Errorf("notification template not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
)
