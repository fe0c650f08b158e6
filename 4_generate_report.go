package topictree

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

var GenerateReportCmd = &cobra.Command{
	Use:   "generate-report",
	Short: "Write the markdown and HTML demo report from the run artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := generateReport(Config); err != nil {
			return fmt.Errorf("failed to generate report: %w", err)
		}
		log.Printf("Report generated: %s", Config.OutputPath(ReportFile))
		return nil
	},
}

// reportData is everything the report reads back from the outputs directory
type reportData struct {
	Settings Settings
	Run      RunManifest
	Split    SplitArtifact
	Elbow    ElbowArtifact
	Clusters []TopicNode
	TreeText string
}

func loadReportData(settings Settings) (*reportData, error) {
	data := &reportData{Settings: settings}

	if err := LoadJSON(settings.OutputPath(RunFile), &data.Run); err != nil {
		return nil, err
	}
	if err := LoadJSON(settings.OutputPath(SplitFile), &data.Split); err != nil {
		return nil, err
	}
	if err := LoadJSON(settings.OutputPath(ElbowFile), &data.Elbow); err != nil {
		return nil, err
	}
	if err := LoadJSON(settings.OutputPath(TopClustersFile), &data.Clusters); err != nil {
		return nil, err
	}

	tree, err := os.ReadFile(settings.OutputPath(TreeFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TreeFile, err)
	}
	data.TreeText = strings.TrimRight(string(tree), "\n")

	return data, nil
}

func generateReport(settings Settings) error {
	data, err := loadReportData(settings)
	if err != nil {
		return err
	}

	report := renderReportMarkdown(data)
	if err := os.WriteFile(settings.OutputPath(ReportFile), []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ReportFile, err)
	}

	htmlContent, err := generateCompleteHTML(report, data.Run.StartedAt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(settings.OutputPath(ReportHTMLFile), []byte(htmlContent), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ReportHTMLFile, err)
	}
	log.Printf("HTML report generated: %s", settings.OutputPath(ReportHTMLFile))

	return nil
}

var tableCellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func escapeTableCell(cell string) string {
	return tableCellReplacer.Replace(cell)
}

func markdownTable(headers []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(headers, " | ") + " |\n")

	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	sb.WriteString("| " + strings.Join(sep, " | ") + " |")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeTableCell(cell)
		}
		sb.WriteString("\n| " + strings.Join(cells, " | ") + " |")
	}
	return sb.String()
}

func renderReportMarkdown(data *reportData) string {
	var sb strings.Builder

	sb.WriteString("# Demo Report\n\n")

	sb.WriteString("## Environment + Config\n")
	fmt.Fprintf(&sb, "- Run: %s\n", data.Run.RunID)
	fmt.Fprintf(&sb, "- Seed: %d\n", data.Split.Seed)
	fmt.Fprintf(&sb, "- n_samples: %d\n", data.Run.Documents)
	fmt.Fprintf(&sb, "- test_size: %g\n", data.Split.TestSize)
	fmt.Fprintf(&sb, "- embedding model: %s\n", data.Run.EmbeddingModel)
	fmt.Fprintf(&sb, "- labeler: %s\n", data.Run.Labeler)
	fmt.Fprintf(&sb, "- elapsed: %s\n\n", data.Run.Elapsed)

	sb.WriteString("## Sample Split\n")
	var splitRows [][]string
	for i, name := range data.Split.LabelNames {
		splitRows = append(splitRows, []string{
			name,
			strconv.Itoa(countAt(data.Split.TrainCounts, i)),
			strconv.Itoa(countAt(data.Split.TestCounts, i)),
		})
	}
	sb.WriteString(markdownTable([]string{"Label", "Train", "Test"}, splitRows))
	sb.WriteString("\n\n")

	sb.WriteString("## Topic Clustering and Tree\n")
	fmt.Fprintf(&sb, "- Chosen K: **%d**\n", data.Elbow.ChosenK)
	if data.Run.DegradedLabels > 0 {
		fmt.Fprintf(&sb, "- Placeholder labels: %d\n", data.Run.DegradedLabels)
	}
	sb.WriteString("\n")

	var elbowRows [][]string
	for i, k := range data.Elbow.Ks {
		elbowRows = append(elbowRows, []string{strconv.Itoa(k), fmt.Sprintf("%.4f", data.Elbow.Inertias[i])})
	}
	sb.WriteString(markdownTable([]string{"K", "Inertia"}, elbowRows))
	sb.WriteString("\n\n")

	var clusterRows [][]string
	for _, c := range data.Clusters {
		clusterRows = append(clusterRows, []string{strconv.Itoa(c.ID), c.Label, strconv.Itoa(c.Size)})
	}
	sb.WriteString(markdownTable([]string{"Cluster", "Label", "Size"}, clusterRows))
	sb.WriteString("\n\n")

	sb.WriteString("```text\n")
	sb.WriteString(data.TreeText)
	sb.WriteString("\n```\n")

	return sb.String()
}

func countAt(counts []int, i int) int {
	if i < len(counts) {
		return counts[i]
	}
	return 0
}

// generateCompleteHTML renders the markdown report into the embedded page
// template with inline CSS
func generateCompleteHTML(markdownContent string, date time.Time) (string, error) {
	// The page template prints its own title
	cleanMarkdown := strings.TrimPrefix(markdownContent, "# Demo Report\n")

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(cleanMarkdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML template: %w", err)
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Topic Tree Demo Report",
		Date:  date.Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return result.String(), nil
}
