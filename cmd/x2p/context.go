package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"xia2pipe/internal/catalogsync"
	"xia2pipe/internal/catalogue"
	"xia2pipe/internal/config"
	"xia2pipe/internal/extract"
	"xia2pipe/internal/layout"
	"xia2pipe/internal/logging"
	"xia2pipe/internal/reconcile"
	"xia2pipe/internal/services"
	"xia2pipe/internal/slurm"
	"xia2pipe/internal/submit"
	"xia2pipe/internal/triage"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "", "config", "load", err)
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// pipeline bundles the components one command invocation needs. Every
// command builds its own; nothing is shared between passes.
type pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	db         *catalogue.DB
	catalogue  *catalogue.Catalogue
	layout     *layout.Layout
	inspector  *slurm.Inspector
	reconciler *reconcile.Reconciler
	extractor  *extract.Extractor
}

type pipelineOptions struct {
	// trace receives every statement executed against the catalogue.
	trace io.Writer
}

func (c *commandContext) openPipeline(ctx context.Context, opts pipelineOptions) (*pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}

	dbOpts := []catalogue.Option{catalogue.WithLogger(logger)}
	if opts.trace != nil {
		dbOpts = append(dbOpts, catalogue.WithTrace(opts.trace))
	}
	db, err := catalogue.Open(ctx, cfg, dbOpts...)
	if err != nil {
		return nil, fmt.Errorf("open catalogue: %w", err)
	}

	l := layout.New(cfg)
	cat := catalogue.New(db, cfg)
	inspector := slurm.NewInspector(l, cfg, slurm.WithLogger(logger))
	return &pipeline{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		catalogue:  cat,
		layout:     l,
		inspector:  inspector,
		reconciler: reconcile.New(cat, l, inspector, logger),
		extractor:  extract.New(l, cfg, extract.WithLogger(logger)),
	}, nil
}

func (p *pipeline) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *pipeline) driver() (*submit.Driver, error) {
	scheduler := slurm.NewSubmitter(p.cfg, slurm.WithLogger(p.logger))
	return submit.New(p.cfg, p.layout, p.catalogue, p.reconciler, scheduler, p.extractor, p.logger)
}

func (p *pipeline) syncer(dryRun io.Writer) *catalogsync.Syncer {
	opts := []catalogsync.Option{catalogsync.WithLogger(p.logger)}
	if dryRun != nil {
		opts = append(opts, catalogsync.WithDryRun(dryRun))
	}
	return catalogsync.New(p.catalogue, p.reconciler, p.extractor, opts...)
}

func (p *pipeline) triage() *triage.Triage {
	return triage.New(p.reconciler, p.inspector, p.logger)
}

func (c *commandContext) withPipeline(cmd *cobra.Command, opts pipelineOptions, fn func(*pipeline) error) error {
	p, err := c.openPipeline(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(p)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
