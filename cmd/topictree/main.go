package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/cenkalti/topictree"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath     string
	seed           int64
	nSamples       int
	testSize       float64
	corpusPath     string
	outputsDir     string
	embeddingModel string
	minK           int
	maxK           int
)

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env file: %v", err)
	}

	defaults := topictree.DefaultSettings()

	rootCmd := &cobra.Command{
		Use:               "topictree",
		Short:             "Sample a corpus and build a labeled two-level topic tree",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML pipeline config file")
	flags.Int64Var(&seed, "seed", defaults.Seed, "random seed")
	flags.IntVar(&nSamples, "n-samples", defaults.NSamples, "number of documents to sample")
	flags.Float64Var(&testSize, "test-size", defaults.TestSize, "test fraction of the stratified split")
	flags.StringVar(&corpusPath, "corpus", defaults.CorpusPath, "corpus directory or JSONL file")
	flags.StringVar(&outputsDir, "outputs-dir", defaults.OutputsDir, "directory for artifacts")
	flags.StringVar(&embeddingModel, "embedding-model", defaults.EmbeddingModel, `embedding model, or "hashing" for offline runs`)
	flags.IntVar(&minK, "min-k", defaults.MinK, "smallest K for the elbow search")
	flags.IntVar(&maxK, "max-k", defaults.MaxK, "largest K for the elbow search")

	// Add all commands from the topictree package
	rootCmd.AddCommand(topictree.SampleCorpusCmd)
	rootCmd.AddCommand(topictree.EmbedDocumentsCmd)
	rootCmd.AddCommand(topictree.BuildTopicTreeCmd)
	rootCmd.AddCommand(topictree.GenerateReportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().Bool("all", false, "also remove the embedding cache")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

// loadConfig layers defaults, the YAML file, the environment and explicit
// flags, in that order
func loadConfig(cmd *cobra.Command, args []string) error {
	settings := topictree.DefaultSettings()
	if configPath != "" {
		var err error
		if settings, err = topictree.LoadSettings(configPath); err != nil {
			return err
		}
	}

	if err := settings.ApplyEnv(os.Getenv); err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		settings.Seed = seed
	}
	if flags.Changed("n-samples") {
		settings.NSamples = nSamples
	}
	if flags.Changed("test-size") {
		settings.TestSize = testSize
	}
	if flags.Changed("corpus") {
		settings.CorpusPath = corpusPath
	}
	if flags.Changed("outputs-dir") {
		settings.OutputsDir = outputsDir
	}
	if flags.Changed("embedding-model") {
		settings.EmbeddingModel = embeddingModel
	}
	if flags.Changed("min-k") {
		settings.MinK = minK
	}
	if flags.Changed("max-k") {
		settings.MaxK = maxK
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	topictree.Config = settings
	return nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: sample-corpus -> embed-documents -> build-topic-tree -> generate-report",
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Println("Running full pipeline...")
		steps := []*cobra.Command{
			topictree.SampleCorpusCmd,
			topictree.EmbedDocumentsCmd,
			topictree.BuildTopicTreeCmd,
			topictree.GenerateReportCmd,
		}
		for _, step := range steps {
			if err := step.RunE(cmd, args); err != nil {
				return err
			}
		}
		log.Println("Pipeline complete.")
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated artifacts from the outputs directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}

		dir := topictree.Config.OutputsDir
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("Nothing to clean in %s", dir)
				return nil
			}
			return err
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if !all && file.Name() == topictree.EmbeddingsDB {
				continue
			}
			if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
				log.Printf("Failed to remove %s: %v", file.Name(), err)
			}
		}

		log.Printf("Cleaned %s.", dir)
		return nil
	},
}
