// Package conversation defines the turn history exchanged with the model.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message in a project's conversation. History is append-only.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with a fresh ID and the current time.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// Store persists conversation turns per project.
type Store interface {
	// Append adds a turn to the end of the project's history.
	Append(ctx context.Context, projectID string, turn Turn) error
	// Recent returns at most n of the newest turns in chronological order.
	Recent(ctx context.Context, projectID string, n int) ([]Turn, error)
	// List returns the full history in chronological order.
	List(ctx context.Context, projectID string) ([]Turn, error)
}

// Window returns the last n turns of a chronological slice.
func Window(turns []Turn, n int) []Turn {
	if n <= 0 {
		return nil
	}
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
