// Package store persists submissions and audit templates.
package store

import (
	"context"

	"leanquest/internal/submission"
	"leanquest/pkg/domain"
)

// Store persists submissions. Error contract:
//   - sentinel.ErrNotFound when the id does not exist
//   - sentinel.ErrConflict on duplicate create
type Store interface {
	Create(ctx context.Context, sub *submission.Submission) error
	FindByID(ctx context.Context, id domain.SubmissionID) (*submission.Submission, error)
	ListByUser(ctx context.Context, userID domain.UserID) ([]submission.Submission, error)
	Update(ctx context.Context, sub *submission.Submission) error
}

// TemplateStore resolves audit checklist templates.
type TemplateStore interface {
	FindByID(ctx context.Context, id domain.TemplateID) (*submission.Template, error)
	List(ctx context.Context) ([]submission.Template, error)
}
