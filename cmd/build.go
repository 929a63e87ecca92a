package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/corpus"
	"github.com/spigell/hh-matcher/internal/logger"
	"github.com/spigell/hh-matcher/internal/record"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Flatten the raw JSON data and build the embedding stores",
	Run: func(_ *cobra.Command, _ []string) {
		build()
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().String("embedder", "", "embedding provider: gemini, ollama or bow")
	buildCmd.Flags().Int("batch-size", 0, "texts per embedding request")

	viper.BindPFlag("embedder.provider", buildCmd.Flags().Lookup("embedder"))
	viper.BindPFlag("embedder.batch-size", buildCmd.Flags().Lookup("batch-size"))
}

func build() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the build",
		zap.String("version", version),
		zap.String("data_dir", config.DataDir),
		zap.String("processed_dir", config.ProcessedDir),
	)

	schemas, err := config.schemas()
	if err != nil {
		logger.Fatal("reading schema overrides", zap.Error(err))
	}

	b := &backends{cfg: config, logger: logger}
	embedder, err := b.embedder(ctx)
	if err != nil {
		logger.Fatal("creating the embedder", zap.Error(err))
	}

	pipeline := &corpus.Pipeline{
		DataDir:      config.DataDir,
		ProcessedDir: config.ProcessedDir,
		Flattener:    record.NewFlattener(schemas),
		Builder:      corpus.NewBuilder(embedder, config.Embedder.BatchSize, logger),
		Logger:       logger,
	}

	summary, err := pipeline.Run(ctx)
	if err != nil {
		logger.Fatal("build failed", zap.Error(err))
	}

	for _, kind := range record.Kinds {
		logger.Info("collection ready", zap.String("collection", string(kind)), zap.Int("records", summary[kind]))
	}
}
