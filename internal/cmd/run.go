package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/askiada/go-mlpipeline/integrations/sklearn"
	"github.com/askiada/go-mlpipeline/internal/artifact"
	"github.com/askiada/go-mlpipeline/internal/config"
	"github.com/askiada/go-mlpipeline/internal/example"
	"github.com/askiada/go-mlpipeline/internal/logging"
	"github.com/askiada/go-mlpipeline/internal/store"
	"github.com/askiada/go-mlpipeline/pkg/deployer"
	"github.com/askiada/go-mlpipeline/pkg/deployer/local"
	"github.com/askiada/go-mlpipeline/pkg/integration"
	"github.com/askiada/go-mlpipeline/pkg/materializer"
	"github.com/askiada/go-mlpipeline/pkg/modelcontrol"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/drawer"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/measure"
	"github.com/askiada/go-mlpipeline/pkg/pipeline/model"
)

const shutdownTimeout = 5 * time.Second

func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	v, err := config.NewViper(opts.configFile)
	if err != nil {
		return nil, err
	}
	bindFlag(v, cmd, "pipeline.graph_file", "graph")
	bindFlag(v, cmd, "pipeline.measure", "measure")

	return config.Load(v)
}

// bindFlag lets a flag override key, only when it is set on the command line.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}

func newLogger(cmd *cobra.Command, cfg config.LoggingConfig) (*logging.Logger, error) {
	if cfg.File != "" {
		return logging.NewFileLogger(cfg.File, cfg.Level, cfg.Format)
	}

	return logging.NewLogger(cmd.ErrOrStderr(), cfg.Level, cfg.Format), nil
}

func openRegistry(cfg config.RegistryConfig) (*modelcontrol.Registry, error) {
	if cfg.Path == "" {
		return modelcontrol.NewRegistry(store.NewMemoryStore()), nil
	}
	fs, err := store.OpenFileStore(cfg.Path)
	if err != nil {
		return nil, err
	}

	return modelcontrol.NewRegistry(fs), nil
}

// activateIntegrations activates the configured integrations. An integration
// whose requirements are missing is skipped with a warning: its artifacts then
// go through the default materializer.
func activateIntegrations(ctx context.Context, names []string, checker integration.RequirementChecker,
	materializers *materializer.Registry, logger *logging.Logger,
) error {
	integrations := integration.NewRegistry(checker, materializers, logger)
	err := sklearn.Register(integrations)
	if err != nil {
		return err
	}

	for _, name := range names {
		err = integrations.Activate(ctx, name)
		switch {
		case errors.Is(err, integration.ErrUnknownIntegration):
			return err
		case err != nil:
			logger.Warn("integration not activated", "integration", name, "error", err.Error())
		}
	}

	return nil
}

func pipelineOptions(cfg config.PipelineConfig) ([]model.PipelineOption, measure.Measure) {
	if cfg.GraphFile == "" && !cfg.Measure {
		return nil, nil
	}

	msr := measure.NewDefaultMeasure()
	opts := []model.PipelineOption{measure.PipelineMeasure(msr)}
	if cfg.GraphFile != "" {
		opts = append(opts, drawer.PipelineDrawer(drawer.NewDOTDrawer(cfg.GraphFile), msr))
	}

	return opts, msr
}

func runDeployment(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close() //nolint:errcheck

	registry, err := openRegistry(cfg.Registry)
	if err != nil {
		return err
	}

	materializers := materializer.NewRegistry(materializer.YAMLMaterializer{})
	err = activateIntegrations(ctx, cfg.Integrations, opts.checker, materializers, logger)
	if err != nil {
		return err
	}
	artifactStore, err := artifact.NewStore(ctx, cfg.Artifacts)
	if err != nil {
		return err
	}

	server := local.New(cfg.Serving.Addr, logger)
	err = server.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("unable to stop prediction server", "error", err.Error())
		}
	}()

	pipeOpts, msr := pipelineOptions(cfg.Pipeline)
	pipe, err := example.Build(ctx, opts.pipelineConfig(), example.Deps{
		Registry:  registry,
		Deployer:  server,
		Artifacts: artifact.NewManager(artifactStore, materializers, logger),
		Logger:    logger,
	}, pipeOpts...)
	if err != nil {
		return errors.Wrap(err, "unable to build pipeline")
	}

	err = pipe.Run()
	if err != nil {
		return errors.Wrap(err, "pipeline failed")
	}
	if cfg.Pipeline.Measure && msr != nil {
		err = measure.Report(cmd.OutOrStdout(), msr)
		if err != nil {
			return err
		}
	}

	services, err := server.FindModelServer(ctx, deployer.Query{
		PipelineName: example.PipelineName,
		StepName:     example.DeployerStepName,
		ModelName:    example.ModelName,
	})
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), services, opts.serve)

	if opts.serve && len(services) > 0 && services[0].IsRunning() {
		waitForSignal(ctx)
	}

	return nil
}

func waitForSignal(ctx context.Context) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
