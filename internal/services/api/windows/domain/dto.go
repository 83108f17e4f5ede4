// Package domain holds the windowed star count request and result shapes
package domain

import (
	"context"
	"time"

	"releasepulse/internal/core/window"
)

// CountInput asks for the stars a repository gained in [anchor, anchor+days]
type CountInput struct {
	Repo   string    `json:"repo"   validate:"required,repo_slug" example:"golang/go"`
	Anchor time.Time `json:"anchor" example:"2024-05-01T10:00:00Z"`
	Days   int       `json:"days"   validate:"min=1,max=90" example:"7"`
}

// CountResult is a finished count with the window it covered
type CountResult struct {
	Repo  string    `json:"repo"`
	From  time.Time `json:"from"`
	Until time.Time `json:"until"`
	window.Result
}

// ServicePort is consumed by handlers and other modules
type ServicePort interface {
	Count(ctx context.Context, in CountInput) (CountResult, error)
}
