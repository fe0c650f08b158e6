package topictree

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var SampleCorpusCmd = &cobra.Command{
	Use:   "sample-corpus",
	Short: "Sample the corpus and write a stratified train/test split",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sampleCorpus(Config); err != nil {
			return fmt.Errorf("failed to sample corpus: %w", err)
		}
		log.Println("Corpus sampling complete.")
		return nil
	},
}

func sampleCorpus(settings Settings) error {
	corpus, err := LoadCorpus(settings.CorpusPath)
	if err != nil {
		return err
	}

	sample, indices, err := Sample(corpus, settings.NSamples, settings.Seed)
	if err != nil {
		return err
	}
	log.Printf("🎲 Sampled %d of %d documents (seed=%d)", sample.Len(), corpus.Len(), settings.Seed)

	split, err := Split(sample, settings.TestSize, settings.Seed)
	if err != nil {
		return err
	}
	log.Printf("✂️  Split into %d train / %d test documents", split.Train.Len(), split.Test.Len())

	if err := os.MkdirAll(settings.OutputsDir, 0755); err != nil {
		return fmt.Errorf("failed to create outputs directory: %w", err)
	}

	if err := SaveCorpusJSONL(settings.OutputPath(SampleFile), sample, indices); err != nil {
		return err
	}
	return SaveJSON(settings.OutputPath(SplitFile), NewSplitArtifact(split, settings.Seed, settings.TestSize))
}
