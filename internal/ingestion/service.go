package ingestion

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aevon-lab/completion-aggregator/internal/aggregation"
	"github.com/aevon-lab/completion-aggregator/internal/core/storage"
)

// Mode describes what happens after a fact is stored.
type Mode string

const (
	// ModeDisabled stores the fact only.
	ModeDisabled Mode = "disabled"
	// ModeSync recomputes the learner's course inline with the write.
	ModeSync Mode = "sync"
	// ModeBatched marks the pair stale for the batch coordinator.
	ModeBatched Mode = "batched"
)

// Options selects the aggregation mode.
type Options struct {
	Enabled       bool
	Async         bool
	MaxBodySizeMB int
	// RunTimeout bounds an inline recomputation. Zero leaves it bounded only
	// by the request context.
	RunTimeout time.Duration
}

func (o Options) mode() Mode {
	switch {
	case !o.Enabled:
		return ModeDisabled
	case o.Async:
		return ModeBatched
	default:
		return ModeSync
	}
}

type Service struct {
	facts            storage.FactStore
	ledger           storage.StalenessLedger
	updater          aggregation.PairUpdater
	mode             Mode
	maxBodySizeBytes int
	runTimeout       time.Duration
}

func NewService(facts storage.FactStore, ledger storage.StalenessLedger, updater aggregation.PairUpdater, opts Options) *Service {
	if facts == nil {
		panic("ingestion: fact store must not be nil")
	}
	if ledger == nil {
		panic("ingestion: ledger must not be nil")
	}
	mode := opts.mode()
	if mode == ModeSync && updater == nil {
		panic("ingestion: updater must not be nil in sync mode")
	}
	maxBodySizeMB := opts.MaxBodySizeMB
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		facts:            facts,
		ledger:           ledger,
		updater:          updater,
		mode:             mode,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
		runTimeout:       opts.RunTimeout,
	}
}

// Mode reports the configured aggregation mode.
func (s *Service) Mode() Mode {
	return s.mode
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/completions", s.IngestHandler)
}
