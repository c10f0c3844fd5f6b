package commands

import (
	"context"

	"github.com/huolto/huolto/internal/automation"
	"github.com/huolto/huolto/internal/deployment"
	"github.com/huolto/huolto/internal/differ"
	"github.com/huolto/huolto/internal/logger"
	"github.com/huolto/huolto/internal/redact"
	"github.com/huolto/huolto/internal/rollback"
	"github.com/huolto/huolto/internal/snapshot"
	"github.com/huolto/huolto/internal/state"
	"github.com/huolto/huolto/internal/storage"
	"github.com/huolto/huolto/pkg/config"
)

// App holds the wired engine components. Everything flows through explicit
// constructors; there are no package-level singletons.
type App struct {
	Config      *config.Config
	Log         logger.Logger
	Deployments deployment.Registry
	Store       storage.Store
	Capturer    *snapshot.Capturer
	Differ      *differ.Differ
	Automations *automation.Registry
	Scheduler   *automation.Scheduler
	Runner      *automation.Runner
	Rollback    *rollback.Coordinator
}

func newApp(cfg *config.Config) (*App, error) {
	log := logger.NewLogrus(cfg.Logging.Level)

	deployments := deployment.NewFileRegistry(cfg.Storage.BaseDir)

	var store storage.Store
	var err error
	if cfg.Storage.Backend == "s3" {
		store, err = storage.NewS3Store(context.Background(), cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix, cfg.Storage.S3.Region)
	} else {
		store, err = storage.NewLocalStore(cfg.Storage.BaseDir)
	}
	if err != nil {
		return nil, err
	}

	reader := state.NewReader(deployments)
	redactor := redact.New(cfg.Redaction.SensitiveKeys)
	capturer := snapshot.NewCapturer(deployments, reader, redactor, store, log)

	automations, err := automation.NewRegistry(cfg.Storage.BaseDir)
	if err != nil {
		return nil, err
	}

	locks := automation.NewDeploymentLocks()
	provisioner := rollback.NewExecProvisioner("")
	scheduler := automation.NewScheduler(automations, deployments, nil, log)
	runner := automation.NewRunner(automations, deployments, capturer, store, provisioner, locks, log)
	coordinator := rollback.NewCoordinator(deployments, store, capturer, provisioner, locks, log)

	return &App{
		Config:      cfg,
		Log:         log,
		Deployments: deployments,
		Store:       store,
		Capturer:    capturer,
		Differ:      differ.New(store),
		Automations: automations,
		Scheduler:   scheduler,
		Runner:      runner,
		Rollback:    coordinator,
	}, nil
}
