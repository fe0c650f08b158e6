package topictree

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var BuildTopicTreeCmd = &cobra.Command{
	Use:   "build-topic-tree",
	Short: "Cluster the embeddings and label a two-level topic tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()

		sample, vectors, err := embedSample(cmd.Context(), Config)
		if err != nil {
			return fmt.Errorf("failed to load embeddings: %w", err)
		}

		labeler := NewLabeler(Config.LabelerConfig())

		tree, err := BuildTopicTree(cmd.Context(), sample, vectors, labeler, DefaultTreeOptions(Config))
		if err != nil {
			return fmt.Errorf("failed to build topic tree: %w", err)
		}

		manifest := NewRunManifest(started)
		manifest.Seed = Config.Seed
		manifest.Documents = sample.Len()
		manifest.EmbeddingModel = Config.EmbeddingModel
		manifest.Labeler = labeler.Name()
		manifest.ChosenK = tree.Elbow.ChosenK
		if d, ok := labeler.(interface{ Degraded() int64 }); ok {
			manifest.DegradedLabels = d.Degraded()
		}
		manifest.Finish(time.Now())

		if err := saveTopicTree(Config, tree, manifest); err != nil {
			return fmt.Errorf("failed to save topic tree: %w", err)
		}

		log.Printf("\n%s", tree.Text())
		if manifest.DegradedLabels > 0 {
			log.Printf("⚠️  %d labels fell back to the placeholder", manifest.DegradedLabels)
		}
		log.Printf("Topic tree complete (run %s, %s).", manifest.RunID, manifest.Elapsed)
		return nil
	},
}

func saveTopicTree(settings Settings, tree *TopicTree, manifest *RunManifest) error {
	if err := SaveJSON(settings.OutputPath(ElbowFile), NewElbowArtifact(tree.Elbow)); err != nil {
		return err
	}
	if err := SaveJSON(settings.OutputPath(TopClustersFile), tree.Top); err != nil {
		return err
	}

	sub := tree.Sub
	if sub == nil {
		sub = []SubTopicNode{}
	}
	if err := SaveJSON(settings.OutputPath(SubClustersFile), sub); err != nil {
		return err
	}

	if err := os.WriteFile(settings.OutputPath(TreeFile), []byte(tree.Text()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", TreeFile, err)
	}

	return SaveJSON(settings.OutputPath(RunFile), manifest)
}
