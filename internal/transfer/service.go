package transfer

import (
	"log/slog"

	"qrt/internal/chunker"
	"qrt/internal/crypto"
	"qrt/internal/store"
	"qrt/internal/symbol"
)

const DefaultCapacityWarn = 100

// Service drives the two pipelines: file to chunk records, and chunk records
// back to a file. Capabilities arrive by injection; a nil Engine means the
// service simply cannot encrypt or decrypt, a nil Store means no persistent
// scan sessions, a nil Symbols means no image rendering.
type Service struct {
	engine     *crypto.Engine
	store      *store.SessionStore
	symbols    symbol.Encoder
	symbolOpts symbol.Options

	maxChunkBytes int
	capacityWarn  int
	log           *slog.Logger
}

type ServiceConfig struct {
	Engine        *crypto.Engine
	Store         *store.SessionStore
	Symbols       symbol.Encoder
	SymbolOptions symbol.Options
	MaxChunkBytes int
	CapacityWarn  int
	Logger        *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.MaxChunkBytes <= 0 {
		cfg.MaxChunkBytes = chunker.CapacityFor(0, 0)
	}
	if cfg.CapacityWarn <= 0 {
		cfg.CapacityWarn = DefaultCapacityWarn
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		engine:        cfg.Engine,
		store:         cfg.Store,
		symbols:       cfg.Symbols,
		symbolOpts:    cfg.SymbolOptions,
		maxChunkBytes: cfg.MaxChunkBytes,
		capacityWarn:  cfg.CapacityWarn,
		log:           cfg.Logger,
	}
}

// Store exposes the session store for CLI session management; nil when not
// configured.
func (s *Service) Store() *store.SessionStore { return s.store }
