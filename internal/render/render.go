// Package render writes analysis results as a terminal table, JSON and Markdown.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/ppiankov/clauseguard/internal/model"
	"github.com/samber/lo"
)

// Options control presentation details
type Options struct {
	Color         bool   // ANSI colors for risk levels
	IncludeFooter bool   // Generator footer in Markdown
	Version       string // Shown in the footer and JSON
	MaxTextWidth  int    // Wrap width of the clause column (0 = 60)
}

// Renderer formats analysis results
type Renderer struct {
	opts Options
}

// New creates a renderer
func New(opts Options) *Renderer {
	if opts.MaxTextWidth <= 0 {
		opts.MaxTextWidth = 60
	}
	return &Renderer{opts: opts}
}

var riskStyles = map[model.RiskLevel]color.Style{
	model.RiskHigh:   color.New(color.FgRed, color.OpBold),
	model.RiskMedium: color.New(color.FgYellow),
	model.RiskLow:    color.New(color.FgGreen),
}

// Risk formats a risk level label, colored when enabled
func (r *Renderer) Risk(level model.RiskLevel) string {
	label := strings.ToUpper(level.String())
	if !r.opts.Color {
		return label
	}
	if style, ok := riskStyles[level]; ok {
		return style.Render(label)
	}
	return label
}

// Summary returns a one-line count such as "3 clauses: 1 high, 1 medium, 1 low"
func (r *Renderer) Summary(result *model.AnalysisResult) string {
	counts := result.CountByRisk()
	parts := lo.Map(model.RiskLevels, func(level model.RiskLevel, _ int) string {
		return fmt.Sprintf("%d %s", counts[level], level)
	})

	noun := "clauses"
	if len(result.Clauses) == 1 {
		noun = "clause"
	}
	return fmt.Sprintf("%d %s: %s", len(result.Clauses), noun, strings.Join(parts, ", "))
}

// Table writes the clauses in server order as a table
func (r *Renderer) Table(w io.Writer, result *model.AnalysisResult) {
	if len(result.Clauses) == 0 {
		_, _ = fmt.Fprintln(w, "No clauses returned.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Risk", "Clause", "Explanation"})
	table.SetAutoWrapText(true)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetColWidth(r.opts.MaxTextWidth)
	table.SetRowLine(true)

	for _, c := range result.Clauses {
		table.Append([]string{c.ID, r.Risk(c.RiskLevel), c.Text, c.Explanation})
	}
	table.Render()

	_, _ = fmt.Fprintln(w, r.Summary(result))
}

// Audio describes held narration in one line
func (r *Renderer) Audio(a *model.AudioArtifact) string {
	return fmt.Sprintf("%s (%s, %s) from %s", a.Filename, a.ContentType, humanBytes(a.Size), a.Source)
}

// jsonReport is the on-disk JSON layout
type jsonReport struct {
	Tool       string         `json:"tool"`
	Version    string         `json:"version,omitempty"`
	Source     string         `json:"source"`
	RequestID  string         `json:"request_id,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
	Summary    map[string]int `json:"summary"`
	Clauses    []model.Clause `json:"clauses"`
}

// JSON writes result as an indented JSON report
func (r *Renderer) JSON(w io.Writer, result *model.AnalysisResult) error {
	counts := result.CountByRisk()
	summary := map[string]int{"total": len(result.Clauses)}
	for _, level := range model.RiskLevels {
		summary[level.String()] = counts[level]
	}

	clauses := result.Clauses
	if clauses == nil {
		clauses = []model.Clause{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonReport{
		Tool:       "clauseguard",
		Version:    r.opts.Version,
		Source:     result.Source,
		RequestID:  result.RequestID,
		ReceivedAt: result.ReceivedAt,
		Summary:    summary,
		Clauses:    clauses,
	})
}

// Markdown writes result grouped by risk level, highest first
func (r *Renderer) Markdown(w io.Writer, result *model.AnalysisResult) error {
	var b strings.Builder

	b.WriteString("# Clause risk report\n\n")
	fmt.Fprintf(&b, "- **Source:** %s\n", result.Source)
	if !result.ReceivedAt.IsZero() {
		fmt.Fprintf(&b, "- **Analyzed:** %s\n", result.ReceivedAt.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "- **Summary:** %s\n", r.Summary(result))

	groups := lo.GroupBy(result.Clauses, func(c model.Clause) model.RiskLevel { return c.RiskLevel })
	for _, level := range model.RiskLevels {
		clauses := groups[level]
		if len(clauses) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s risk (%d)\n", capitalize(level.String()), len(clauses))
		for _, c := range clauses {
			fmt.Fprintf(&b, "\n### Clause %s\n\n", c.ID)
			fmt.Fprintf(&b, "> %s\n", strings.ReplaceAll(strings.TrimSpace(c.Text), "\n", "\n> "))
			if c.Explanation != "" {
				fmt.Fprintf(&b, "\n%s\n", c.Explanation)
			}
		}
	}

	if r.opts.IncludeFooter {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "_Generated by clauseguard %s. Risk levels come from the analysis service and are not legal advice._\n", r.opts.Version)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFiles writes the JSON and Markdown reports; empty paths are skipped
func (r *Renderer) WriteFiles(result *model.AnalysisResult, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := writeFile(jsonPath, func(w io.Writer) error { return r.JSON(w, result) }); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
	}
	if mdPath != "" {
		if err := writeFile(mdPath, func(w io.Writer) error { return r.Markdown(w, result) }); err != nil {
			return fmt.Errorf("write Markdown: %w", err)
		}
	}
	return nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
