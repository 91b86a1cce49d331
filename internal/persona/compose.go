package persona

import (
	"context"
	"fmt"
	"time"

	"github.com/khelan-mehta/avatar-backend/internal/store"
)

const additionalContextHeader = "\n\nADDITIONAL CONTEXT FROM KHELAN:\n"

// Compose builds the system prompt from the base persona and admin-supplied context.
func Compose(base, additional string) string {
	if additional == "" {
		return base
	}
	return base + additionalContextHeader + additional
}

// ContextDocument is the persisted form of the admin-supplied context.
type ContextDocument struct {
	Context   string     `json:"context"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// LoadContext reads the additional context. A missing or unreadable document yields "".
// The returned error reports backend failures only and can be logged and ignored.
func LoadContext(ctx context.Context, s store.Store) (string, error) {
	doc, err := store.ReadOrDefault(ctx, s, store.KeyAdditionalContext, ContextDocument{})
	return doc.Context, err
}

// SaveContext replaces the additional context.
func SaveContext(ctx context.Context, s store.Store, text string, now time.Time) (ContextDocument, error) {
	ts := now.UTC()
	doc := ContextDocument{Context: text, UpdatedAt: &ts}
	if err := s.Set(ctx, store.KeyAdditionalContext, doc); err != nil {
		return ContextDocument{}, fmt.Errorf("save additional context: %w", err)
	}
	return doc, nil
}
