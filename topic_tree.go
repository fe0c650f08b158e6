package topictree

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
)

const (
	RepresentativeCount = 8
	SnippetLength       = 280
	RefineParents       = 2
	SubClusterCount     = 3
)

// TopicSummary is what every node of the tree carries
type TopicSummary struct {
	Size      int      `json:"size"`
	Snippets  []string `json:"representative_snippets"`
	Label     string   `json:"label"`
	Rationale string   `json:"rationale"`
}

// TopicNode is a top-level cluster
type TopicNode struct {
	ID int `json:"cluster_id"`
	TopicSummary
	Children []SubTopicNode `json:"-"`
}

// SubTopicNode is a cluster found by refining a top-level cluster
type SubTopicNode struct {
	ParentID int `json:"parent_cluster_id"`
	SubID    int `json:"subcluster_id"`
	TopicSummary
}

// TopicTree is the two-level result of a run
type TopicTree struct {
	Top   []TopicNode
	Sub   []SubTopicNode
	Elbow *ElbowResult
}

// TreeOptions controls the shape of the tree
type TreeOptions struct {
	Ks              []int
	Seed            int64
	Representatives int
	SnippetLength   int
	RefineParents   int
	SubClusters     int
}

func DefaultTreeOptions(settings Settings) TreeOptions {
	return TreeOptions{
		Ks:              settings.KRange(),
		Seed:            settings.Seed,
		Representatives: RepresentativeCount,
		SnippetLength:   SnippetLength,
		RefineParents:   RefineParents,
		SubClusters:     SubClusterCount,
	}
}

// BuildTopicTree picks K by the elbow method, labels every top-level cluster,
// then refines and labels the largest ones. vectors must be index-aligned with
// the corpus.
func BuildTopicTree(ctx context.Context, corpus *Corpus, vectors [][]float64, labeler Labeler, opts TreeOptions) (*TopicTree, error) {
	if len(vectors) != corpus.Len() {
		return nil, fmt.Errorf("%w: %d vectors for %d documents", ErrConfiguration, len(vectors), corpus.Len())
	}

	elbow, err := ElbowSearch(vectors, opts.Ks, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to select K: %w", err)
	}
	a := elbow.Assignment

	summarize := func(members []int, centroid []float64) TopicSummary {
		reps := Nearest(vectors, members, centroid, opts.Representatives)
		snippets := make([]string, len(reps))
		for i, idx := range reps {
			snippets[i] = makeSnippet(corpus.Docs[idx].Text, opts.SnippetLength)
		}
		label := labeler.Label(ctx, snippets)
		return TopicSummary{
			Size:      len(members),
			Snippets:  snippets,
			Label:     label.Label,
			Rationale: label.Rationale,
		}
	}

	log.Printf("🏷️  Labeling %d top-level clusters with %s labeler...", a.K, labeler.Name())
	top := make([]TopicNode, a.K)
	for cid := 0; cid < a.K; cid++ {
		top[cid] = TopicNode{ID: cid, TopicSummary: summarize(a.Members(cid), a.Centroids[cid])}
		log.Printf("  [%d] %s (n=%d)", cid, top[cid].Label, top[cid].Size)
	}

	refined, err := Refine(vectors, a, opts.RefineParents, opts.SubClusters, opts.Seed)
	if err != nil {
		return nil, err
	}

	var sub []SubTopicNode
	for _, r := range refined {
		for sid := 0; sid < r.Assignment.K; sid++ {
			node := SubTopicNode{
				ParentID:     r.ParentID,
				SubID:        sid,
				TopicSummary: summarize(r.Assignment.Members(sid), r.Assignment.Centroids[sid]),
			}
			log.Printf("  [%d.%d] %s (n=%d)", node.ParentID, node.SubID, node.Label, node.Size)
			sub = append(sub, node)
			top[r.ParentID].Children = append(top[r.ParentID].Children, node)
		}
	}

	return &TopicTree{Top: top, Sub: sub, Elbow: elbow}, nil
}

// Text renders the tree under a heading, as written to topic_tree.txt
func (t *TopicTree) Text() string {
	return "Topic Tree\n=========\n" + Render(t.Top, t.Sub) + "\n"
}

// Render formats top-level nodes by ascending id, each followed by its
// sub-nodes by ascending sub-id. Sub-nodes whose parent is absent are dropped.
func Render(top []TopicNode, sub []SubTopicNode) string {
	children := make(map[int][]SubTopicNode)
	for _, node := range sub {
		children[node.ParentID] = append(children[node.ParentID], node)
	}

	sortedTop := make([]TopicNode, len(top))
	copy(sortedTop, top)
	sort.SliceStable(sortedTop, func(i, j int) bool {
		return sortedTop[i].ID < sortedTop[j].ID
	})

	var lines []string
	for _, node := range sortedTop {
		lines = append(lines, fmt.Sprintf("- [%d] %s (n=%d)", node.ID, node.Label, node.Size))

		kids := children[node.ID]
		sort.SliceStable(kids, func(i, j int) bool {
			return kids[i].SubID < kids[j].SubID
		})
		for _, kid := range kids {
			lines = append(lines, fmt.Sprintf("  - [%d.%d] %s (n=%d)", kid.ParentID, kid.SubID, kid.Label, kid.Size))
		}
	}
	return strings.Join(lines, "\n")
}

func makeSnippet(text string, maxLength int) string {
	return strings.ReplaceAll(truncateString(text, maxLength), "\n", " ")
}
