package cli

import (
	"context"
	"log/slog"

	"qrt/internal/config"
	"qrt/internal/transfer"
)

// AppContext carries the dependencies the CLI commands operate on.
type AppContext struct {
	Service    *transfer.Service
	Cfg        *config.Config
	Log        *slog.Logger
	CancelFunc context.CancelFunc
}

func NewAppContext(svc *transfer.Service, cfg *config.Config, log *slog.Logger, cancel context.CancelFunc) *AppContext {
	return &AppContext{
		Service:    svc,
		Cfg:        cfg,
		Log:        log,
		CancelFunc: cancel,
	}
}
