package cmd

import (
	"github.com/spf13/cobra"

	"github.com/askiada/go-mlpipeline/internal/example"
	"github.com/askiada/go-mlpipeline/pkg/integration"
)

type options struct {
	configFile  string
	batchSize   int
	epochs      int
	lr          float64
	momentum    float64
	minAccuracy float64
	serve       bool
	graph       string
	measure     bool

	checker integration.RequirementChecker
}

// NewRootCmd returns the deployment example command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(integration.PipChecker{})
}

func newRootCmd(checker integration.RequirementChecker) *cobra.Command {
	opts := &options{checker: checker}

	cmd := &cobra.Command{
		Use:   "deployment-example",
		Short: "Train, evaluate and deploy a linear classifier",
		Long: `Run the continuous deployment pipeline: load data, train a linear
classifier, evaluate it and deploy it behind a local prediction server when
its accuracy is high enough. The status of the prediction server is printed
once the pipeline has run.`,
		Example:       "  deployment-example --min-accuracy 0.80 --serve",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDeployment(cmd, opts)
		},
	}

	loader := example.DefaultDataLoaderConfig()
	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default is $HOME/.config/mlpipeline/config.yaml)")
	flags.IntVar(&opts.batchSize, "batch-size", loader.TrainBatchSize, "batch size used for training and evaluation")
	flags.IntVar(&opts.epochs, "epochs", 3, "number of training epochs")
	flags.Float64Var(&opts.lr, "lr", 0.01, "learning rate")
	flags.Float64Var(&opts.momentum, "momentum", 0.5, "SGD momentum")
	flags.Float64Var(&opts.minAccuracy, "min-accuracy", 0.80, "minimum accuracy required to deploy the model")
	flags.BoolVar(&opts.serve, "serve", false, "keep the prediction server up until interrupted")
	flags.StringVar(&opts.graph, "graph", "", "write a DOT drawing of the pipeline to this file")
	flags.BoolVar(&opts.measure, "measure", false, "print step timings after the run")

	return cmd
}

func (o *options) pipelineConfig() example.Config {
	loader := example.DefaultDataLoaderConfig()
	loader.TrainBatchSize = o.batchSize
	loader.TestBatchSize = o.batchSize

	return example.Config{
		Loader: loader,
		Trainer: example.TrainerConfig{
			Epochs:   o.epochs,
			LR:       o.lr,
			Momentum: o.momentum,
		},
		Trigger: example.DeploymentTriggerConfig{MinAccuracy: o.minAccuracy},
	}
}
