// Package http exposes the learning service over REST.
package http

import (
	"context"

	"github.com/mind-engage/classwork/internal/learning"
	"github.com/mind-engage/classwork/internal/logger"
	"github.com/mind-engage/classwork/internal/storage"

	auth "github.com/mind-engage/classwork/internal/auth/middleware"
)

// Pinger reports database readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Service *learning.Service
	Auth    *auth.AuthService
	Blobs   storage.BlobStore
	DB      Pinger
	Log     *logger.Logger
}

func (d Deps) log() *logger.Logger {
	if d.Log == nil {
		return logger.Nop()
	}
	return d.Log
}
