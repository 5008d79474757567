package domain

import (
	"errors"
	"strings"
	"time"
)

type MatterStatus string

const (
	MatterStatusOpen   MatterStatus = "open"
	MatterStatusClosed MatterStatus = "closed"
)

// Matter is a case or engagement belonging to a single client
type Matter struct {
	ID             int64
	ClientID       int64
	Name           string
	Number         string // firm-assigned matter number, e.g. "2026-0042"
	PracticeAreaID *int64
	Status         MatterStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewMatter creates an open matter for a client
func NewMatter(clientID int64, name string) *Matter {
	now := time.Now()
	return &Matter{
		ClientID:  clientID,
		Name:      strings.TrimSpace(name),
		Status:    MatterStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate returns an error if the matter is invalid
func (m *Matter) Validate() error {
	if m.ClientID <= 0 {
		return errors.New("client ID is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("matter name is required")
	}
	if m.Status != MatterStatusOpen && m.Status != MatterStatusClosed {
		return errors.New("matter status must be open or closed")
	}
	return nil
}

// PracticeArea is a firm-level grouping of matters (litigation, tax, ...)
type PracticeArea struct {
	ID   int64
	Name string
}

// ActivityType classifies a unit of work (drafting, court appearance, ...)
type ActivityType struct {
	ID   int64
	Name string
}
