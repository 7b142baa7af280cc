package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/pkg/models"
	"go.uber.org/zap"
)

// ANSI color codes
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
	colorWhite   = "\033[37m"
	colorOrange  = "\033[38;5;208m"
	colorGray    = "\033[38;5;245m"
)

const rule = "───────────────────────────────────────────────────────────────"

// FormatDuration formats duration to a human-readable string with max 2 decimal places
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		// Milliseconds
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	} else if d < time.Minute {
		// Seconds
		return fmt.Sprintf("%.2fs", d.Seconds())
	} else if d < time.Hour {
		// Minutes and seconds
		mins := int(d.Minutes())
		secs := d.Seconds() - float64(mins*60)
		return fmt.Sprintf("%dm%.2fs", mins, secs)
	}
	// Hours, minutes and seconds
	hours := int(d.Hours())
	mins := int(d.Minutes()) - hours*60
	secs := d.Seconds() - float64(hours*3600) - float64(mins*60)
	return fmt.Sprintf("%dh%dm%.2fs", hours, mins, secs)
}

// Generator renders recovery reports in various formats
type Generator struct {
	config *config.Config
	logger *zap.Logger
	out    io.Writer
}

// NewGenerator creates a new report generator
func NewGenerator(cfg *config.Config, logger *zap.Logger) (*Generator, error) {
	switch cfg.ReportFormat {
	case "", "console", "json", "yaml", "yml", "txt", "text", "md", "markdown":
	default:
		return nil, fmt.Errorf("unknown report format: %s", cfg.ReportFormat)
	}
	return &Generator{
		config: cfg,
		logger: logger,
		out:    os.Stdout,
	}, nil
}

// SetOutput redirects console output
func (g *Generator) SetOutput(w io.Writer) {
	g.out = w
}

// Generate renders batch. Console output returns an empty path; file
// formats return the absolute path written.
func (g *Generator) Generate(batch *Batch) (string, error) {
	format := g.config.ReportFormat
	outputFile := g.config.OutputFile

	// If no format specified, print to console
	if format == "" || format == "console" {
		g.printConsole(batch)
		return "", nil
	}

	// Generate default filename if not specified
	if outputFile == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputFile = fmt.Sprintf("ION-REPORT-%s.%s", timestamp, extension(format))
	}

	g.logger.Info("Generating report",
		zap.String("format", format),
		zap.String("output", outputFile))

	data, err := Render(batch, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s report: %w", format, err)
	}
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s report: %w", format, err)
	}

	// Get absolute path
	absPath, _ := filepath.Abs(outputFile)
	return absPath, nil
}

// Render renders batch in a file format
func Render(batch *Batch, format string) ([]byte, error) {
	switch format {
	case "json":
		return renderJSON(batch)
	case "yaml", "yml":
		return renderYAML(batch)
	case "txt", "text":
		return []byte(renderText(batch)), nil
	case "md", "markdown":
		return []byte(renderMarkdown(batch)), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}

func extension(format string) string {
	switch format {
	case "text":
		return "txt"
	case "markdown":
		return "md"
	case "yml":
		return "yaml"
	default:
		return format
	}
}

// printConsole prints the batch to the configured writer with colors
func (g *Generator) printConsole(batch *Batch) {
	w := g.out
	for _, rec := range batch.Recoveries {
		g.printRecovery(w, rec)
	}

	if len(batch.Recoveries) > 1 {
		fmt.Fprintf(w, "%s%sBATCH COMPLETE%s\n\n", colorBold, colorOrange, colorReset)
		fmt.Fprintf(w, "  %sRoot:%s      %s\n", colorGray, colorReset, batch.Root)
		fmt.Fprintf(w, "  %sFiles:%s     %d\n", colorGray, colorReset, len(batch.Recoveries))
		fmt.Fprintf(w, "  %sAccepted:%s  %s%d%s\n", colorGray, colorReset, colorGreen, batch.Accepted, colorReset)
		fmt.Fprintf(w, "  %sFailed:%s    %s%d%s\n", colorGray, colorReset, colorYellow, batch.Failed, colorReset)
		fmt.Fprintf(w, "  %sErrors:%s    %s%d%s\n", colorGray, colorReset, colorRed, batch.Errors, colorReset)
		fmt.Fprintf(w, "  %sDuration:%s  %s\n\n", colorGray, colorReset, FormatDuration(batch.Duration))
	}
}

func (g *Generator) printRecovery(w io.Writer, rec *Recovery) {
	fmt.Fprintln(w)
	switch {
	case rec.Error != "":
		fmt.Fprintf(w, "%s%sRECOVERY ABORTED%s\n\n", colorBold, colorRed, colorReset)
	case rec.Accepted():
		fmt.Fprintf(w, "%s%sRECOVERY COMPLETE%s\n\n", colorBold, colorOrange, colorReset)
	default:
		fmt.Fprintf(w, "%s%sRECOVERY FAILED%s\n\n", colorBold, colorYellow, colorReset)
	}

	fmt.Fprintf(w, "  %sFile:%s      %s\n", colorGray, colorReset, rec.Path)
	if rec.Error != "" {
		fmt.Fprintf(w, "  %sError:%s     %s%s%s\n\n", colorGray, colorReset, colorRed, rec.Error, colorReset)
		return
	}
	if rec.Header != nil {
		fmt.Fprintf(w, "  %sFormat:%s    %s\n", colorGray, colorReset, headerLine(rec.Header))
	} else if rec.Format != "" {
		fmt.Fprintf(w, "  %sFormat:%s    %s\n", colorGray, colorReset, rec.Format)
	}
	if rec.Payload != nil {
		fmt.Fprintf(w, "  %sPayload:%s   %s, %s, blake3 %s\n", colorGray, colorReset,
			rec.Payload.Mode, humanize.Bytes(uint64(rec.PayloadSize)), shortHash(rec.Payload.Hash))
	}

	res := rec.Result
	if res == nil {
		fmt.Fprintln(w)
		return
	}
	truncated := ""
	if res.Truncated {
		truncated = fmt.Sprintf(" %s(bound reached)%s", colorYellow, colorReset)
	}
	fmt.Fprintf(w, "  %sSearch:%s    %s attempts, %d workers, %s%s\n", colorGray, colorReset,
		humanize.Comma(res.Attempts), res.Workers, FormatDuration(res.Duration), truncated)
	fmt.Fprintln(w)

	if best := res.Best; best != nil {
		if res.Accepted {
			fmt.Fprintf(w, "  %s%s✓ Accepted:%s %s\n", colorBold, colorGreen, colorReset, candidateLine(best.Candidate))
		} else {
			fmt.Fprintf(w, "  %s%s~ Closest:%s  %s\n", colorBold, colorYellow, colorReset, candidateLine(best.Candidate))
		}
		fmt.Fprintf(w, "  %sScore:%s     %s\n", colorGray, colorReset, scoreLine(best.Report, res.Threshold))
		if len(best.Report.Markers) > 0 {
			fmt.Fprintf(w, "  %sMarkers:%s   %s\n", colorGray, colorReset, strings.Join(best.Report.Markers, ", "))
		}
	} else {
		fmt.Fprintf(w, "  %s%s✗ Nothing decoded above zero%s\n", colorBold, colorRed, colorReset)
	}
	if len(rec.Layers) > 0 {
		fmt.Fprintf(w, "  %sLayers:%s    %s\n", colorGray, colorReset, strings.Join(rec.Layers, " → "))
	}
	if rec.OutputPath != "" {
		fmt.Fprintf(w, "  %sOutput:%s    %s%s%s\n", colorGray, colorReset, colorOrange, rec.OutputPath, colorReset)
	}

	if a := rec.Analysis; a != nil && a.Size > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s%s%s\n", colorGray, rule, colorReset)
		fmt.Fprintf(w, "\n  %s%sANALYSIS%s\n", colorBold, colorCyan, colorReset)
		fmt.Fprintf(w, "      %sSize:%s       %s, %d lines, entropy %.2f (%s)\n", colorGray, colorReset,
			humanize.Bytes(uint64(a.Size)), a.Lines, a.Entropy.Overall, a.Entropy.Looks())
		printList(w, "Functions", a.Functions)
		printList(w, "Classes", a.Classes)
		printList(w, "Variables", a.Variables)
		printList(w, "Features", a.Features)
		printList(w, "Security", a.Security)
		printList(w, "File", a.File)
		printList(w, "Network", a.Network)
		printList(w, "Database", a.Database)
		for _, c := range a.Combinations {
			fmt.Fprintf(w, "      %sRisk:%s       %s%s%s %s (%s)\n", colorGray, colorReset,
				severityColor(c.Severity), strings.ToUpper(c.Severity), colorReset, c.Name, strings.Join(c.Calls, " + "))
		}
	}

	if rec.Oracle != nil || rec.OracleError != "" {
		fmt.Fprintf(w, "\n  %s%sORACLE%s\n", colorBold, colorBlue, colorReset)
		if rec.OracleError != "" {
			fmt.Fprintf(w, "      %sUnavailable:%s %s\n", colorGray, colorReset, rec.OracleError)
		} else {
			printList(w, "Functions", rec.Oracle.Functions)
			printList(w, "Classes", rec.Oracle.Classes)
			fmt.Fprintf(w, "      %sConstants:%s  %d\n", colorGray, colorReset, len(rec.Oracle.Constants))
			fmt.Fprintf(w, "      %sDuration:%s   %s\n", colorGray, colorReset, FormatDuration(rec.Oracle.Duration))
		}
	}

	if rec.Review != nil || rec.ReviewError != "" {
		fmt.Fprintf(w, "\n  %s%sAI REVIEW%s\n", colorBold, colorMagenta, colorReset)
		if rec.ReviewError != "" {
			fmt.Fprintf(w, "      %sFailed:%s     %s\n", colorGray, colorReset, rec.ReviewError)
		} else {
			rv := rec.Review
			fmt.Fprintf(w, "      %sVerdict:%s    %s%s%s (%d%% confidence)\n", colorGray, colorReset,
				verdictColor(rv.Verdict), strings.ToUpper(string(rv.Verdict)), colorReset, rv.Confidence)
			if rv.Summary != "" {
				fmt.Fprintf(w, "      %sSummary:%s    %s%s%s\n", colorGray, colorReset, colorDim, cleanFragment(rv.Summary, 100), colorReset)
			}
			fmt.Fprintf(w, "      %sTokens:%s     %d\n", colorGray, colorReset, rv.TokensUsed)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s%s\n", colorGray, rule, colorReset)
	fmt.Fprintf(w, "\n  %s%sMETHODS%s\n", colorBold, colorWhite, colorReset)
	for _, m := range res.Methods {
		fmt.Fprintf(w, "      %-12s %s%-16s%s score %-4d attempts %-8s %s%s%s\n",
			m.Method, outcomeColor(m.Outcome), m.Outcome, colorReset, m.BestScore,
			humanize.Comma(int64(m.Attempts)), colorDim, m.Reason(), colorReset)
	}
	fmt.Fprintln(w)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "      %s%-11s%s %s\n", colorGray, label+":", colorReset, strings.Join(items, ", "))
}

// headerLine summarises a parsed preamble
func headerLine(h *models.Header) string {
	return fmt.Sprintf("%s (format %d, v%d.%d, encoder %d:%s, file %d:%s)",
		h.Format, h.FormatVersion, h.MajorVersion, h.MinorVersion,
		h.EncoderVersion, h.EncoderID, h.FileVersion, h.FileID)
}

// candidateLine names the technique that produced c
func candidateLine(c *models.Candidate) string {
	s := fmt.Sprintf("%s %s", c.Method, c.Variant)
	if c.Framing != "" {
		s += fmt.Sprintf(" | %s @%d", c.Framing, c.Offset)
	}
	if c.Stage != "" {
		s += " | " + string(c.Stage)
	}
	return s
}

// scoreLine lists all sub-scores of r
func scoreLine(r *models.ScoreReport, threshold int) string {
	return fmt.Sprintf("%d / %d (strong %d, weak %d, variables %d, binary %.2f, entropy %.2f)",
		r.Score, threshold, r.StrongMarkers, r.WeakMarkers, r.Variables, r.BinaryRatio, r.Entropy)
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

func outcomeColor(o models.Outcome) string {
	switch o {
	case models.OutcomePassed:
		return colorGreen + colorBold
	case models.OutcomeBelowThreshold:
		return colorYellow
	case models.OutcomeSkipped:
		return colorGray
	default:
		return colorDim
	}
}

// verdictColor returns ANSI color for AI verdict
func verdictColor(verdict ai.Verdict) string {
	switch verdict {
	case ai.VerdictSource:
		return colorGreen
	case ai.VerdictPartial:
		return colorYellow
	case ai.VerdictObfuscated:
		return colorOrange
	case ai.VerdictGarbage:
		return colorRed + colorBold
	default:
		return colorYellow
	}
}

// severityColor returns ANSI color for a risk combination
func severityColor(severity string) string {
	switch severity {
	case "critical":
		return colorRed + colorBold
	case "high":
		return colorOrange
	case "medium":
		return colorYellow
	default:
		return colorBlue
	}
}

// cleanFragment cleans and truncates text for single-line output
func cleanFragment(fragment string, maxLen int) string {
	// Replace newlines and tabs with spaces
	fragment = strings.ReplaceAll(fragment, "\n", " ")
	fragment = strings.ReplaceAll(fragment, "\r", "")
	fragment = strings.ReplaceAll(fragment, "\t", " ")

	// Collapse multiple spaces
	for strings.Contains(fragment, "  ") {
		fragment = strings.ReplaceAll(fragment, "  ", " ")
	}

	fragment = strings.TrimSpace(fragment)

	if len(fragment) > maxLen {
		fragment = fragment[:maxLen] + "..."
	}

	return fragment
}
