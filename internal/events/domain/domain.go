package domain

import (
	"context"
	"time"

	"github.com/DocumentationTool/Backend-sub000/internal/platform/ident"
)

// Event represents an audit event.
// Type examples: "resource.inserted", "permission.grant.added"
// Meta may contain path, level, target, etc.
type Event struct {
	Type   string
	RepoID ident.RepoID
	UserID ident.UserID
	Meta   map[string]string
	Time   time.Time
}

// Publisher publishes events to an external system (log, queue, etc.).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
