package cli

import (
	"fmt"

	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/config"
	"github.com/platinummonkey/cog/pkg/features"
	"github.com/platinummonkey/cog/pkg/journal"
	"github.com/platinummonkey/cog/pkg/observability"
	"github.com/platinummonkey/cog/pkg/pipeline"
	"github.com/sirupsen/logrus"
)

// session is everything a command needs to operate on one project
type session struct {
	cfg      *config.Config
	log      *logrus.Logger
	journal  *journal.Journal
	pipeline *pipeline.Pipeline
}

func (a *app) open() (*session, error) {
	cfg, err := config.Load(a.projectDir)
	if err != nil {
		return nil, err
	}

	log, err := observability.NewLogger(cfg.LogLevel, a.errOut)
	if err != nil {
		return nil, err
	}

	store, err := assets.NewStore(cfg.ProjectRoot, assets.Options{
		CacheSize: cfg.AssetCacheSize,
		CacheTTL:  cfg.AssetCacheTTL,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log}
	if file := cfg.JournalFile(); file != "" {
		j, err := journal.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		s.journal = j
	}

	s.pipeline = pipeline.New(features.NewStore(store, cfg.AssetsDir, log), pipeline.Options{
		ProductsRoot: cfg.ProductsRoot,
		Writer:       journal.NewWriter(s.journal, nil, nil),
		Journal:      s.journal,
		Logger:       log,
	})
	return s, nil
}

func (s *session) close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.log.Warnf("Failed to close journal: %v", err)
		}
	}
}

// withSession opens a session for the duration of fn
func (a *app) withSession(fn func(s *session) error) error {
	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}
