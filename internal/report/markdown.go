package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/pkg/models"
)

// renderMarkdown renders the batch as a Markdown document
func renderMarkdown(batch *Batch) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# ion Recovery Report v%s\n\n", batch.Version))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Root | `%s` |\n", batch.Root))
	sb.WriteString(fmt.Sprintf("| Mode | %s |\n", batch.Mode))
	sb.WriteString(fmt.Sprintf("| Start Time | %s |\n", batch.StartTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n", FormatDuration(batch.Duration)))
	sb.WriteString(fmt.Sprintf("| Files | %d |\n", len(batch.Recoveries)))
	sb.WriteString(fmt.Sprintf("| **Accepted** | **%d** |\n", batch.Accepted))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", batch.Failed))
	sb.WriteString(fmt.Sprintf("| Errors | %d |\n", batch.Errors))
	sb.WriteString("\n")

	for _, rec := range batch.Recoveries {
		writeMarkdownRecovery(&sb, rec)
	}

	sb.WriteString("---\n\n")
	sb.WriteString("*Generated by ion*\n")
	return sb.String()
}

func writeMarkdownRecovery(sb *strings.Builder, rec *Recovery) {
	status := "❌ Failed"
	switch {
	case rec.Error != "":
		status = "⛔ Aborted"
	case rec.Accepted():
		status = "✅ Accepted"
	}
	sb.WriteString(fmt.Sprintf("## `%s` %s\n\n", rec.Path, status))

	if rec.Error != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", rec.Error))
		return
	}

	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	if rec.Header != nil {
		sb.WriteString(fmt.Sprintf("| Format | %s |\n", headerLine(rec.Header)))
	} else if rec.Format != "" {
		sb.WriteString(fmt.Sprintf("| Format | %s |\n", rec.Format))
	}
	if rec.Payload != nil {
		sb.WriteString(fmt.Sprintf("| Payload | %s, %s |\n", rec.Payload.Mode, humanize.Bytes(uint64(rec.PayloadSize))))
		sb.WriteString(fmt.Sprintf("| Payload BLAKE3 | `%s` |\n", rec.Payload.Hash))
	}

	res := rec.Result
	if res != nil {
		sb.WriteString(fmt.Sprintf("| Attempts | %s |\n", humanize.Comma(res.Attempts)))
		sb.WriteString(fmt.Sprintf("| Duration | %s |\n", FormatDuration(res.Duration)))
		if res.Truncated {
			sb.WriteString("| Bound reached | yes |\n")
		}
		if best := res.Best; best != nil {
			label := "Closest"
			if res.Accepted {
				label = "Accepted"
			}
			sb.WriteString(fmt.Sprintf("| %s | `%s` |\n", label, candidateLine(best.Candidate)))
			sb.WriteString(fmt.Sprintf("| Score | %s |\n", scoreLine(best.Report, res.Threshold)))
			if len(best.Report.Markers) > 0 {
				sb.WriteString(fmt.Sprintf("| Markers | %s |\n", strings.Join(best.Report.Markers, ", ")))
			}
		}
	}
	if len(rec.Layers) > 0 {
		sb.WriteString(fmt.Sprintf("| Layers | %s |\n", strings.Join(rec.Layers, " → ")))
	}
	if rec.TextHash != "" {
		sb.WriteString(fmt.Sprintf("| Text BLAKE3 | `%s` |\n", rec.TextHash))
	}
	if rec.OutputPath != "" {
		sb.WriteString(fmt.Sprintf("| Output | `%s` |\n", rec.OutputPath))
	}
	sb.WriteString("\n")

	if a := rec.Analysis; a != nil && a.Size > 0 {
		sb.WriteString("### Analysis\n\n")
		sb.WriteString(fmt.Sprintf("- **Size:** %s, %d lines, entropy %.2f (%s)\n",
			humanize.Bytes(uint64(a.Size)), a.Lines, a.Entropy.Overall, a.Entropy.Looks()))
		writeMarkdownList(sb, "Functions", a.Functions)
		writeMarkdownList(sb, "Classes", a.Classes)
		writeMarkdownList(sb, "Variables", a.Variables)
		writeMarkdownList(sb, "Features", a.Features)
		writeMarkdownList(sb, "Security calls", a.Security)
		writeMarkdownList(sb, "File calls", a.File)
		writeMarkdownList(sb, "Network calls", a.Network)
		writeMarkdownList(sb, "Database calls", a.Database)
		for _, c := range a.Combinations {
			sb.WriteString(fmt.Sprintf("- **Risk (%s):** %s: `%s`\n", c.Severity, c.Name, strings.Join(c.Calls, " + ")))
		}
		sb.WriteString("\n")
	}

	if rec.Oracle != nil || rec.OracleError != "" {
		sb.WriteString("### Oracle\n\n")
		if rec.OracleError != "" {
			sb.WriteString(fmt.Sprintf("> Unavailable: %s\n\n", rec.OracleError))
		} else {
			writeMarkdownList(sb, "Functions", rec.Oracle.Functions)
			writeMarkdownList(sb, "Classes", rec.Oracle.Classes)
			sb.WriteString(fmt.Sprintf("- **Constants:** %d\n\n", len(rec.Oracle.Constants)))
		}
	}

	if rec.Review != nil {
		sb.WriteString("### AI Review\n\n")
		sb.WriteString(fmt.Sprintf("%s **%s** (%d%% confidence, %s)\n\n",
			ai.GetVerdictEmoji(rec.Review.Verdict), strings.ToUpper(string(rec.Review.Verdict)),
			rec.Review.Confidence, rec.Review.Model))
		if rec.Review.Summary != "" {
			sb.WriteString(rec.Review.Summary + "\n\n")
		}
		for _, ind := range rec.Review.Indicators {
			sb.WriteString(fmt.Sprintf("- `%s`\n", ind))
		}
		if len(rec.Review.Indicators) > 0 {
			sb.WriteString("\n")
		}
	}

	if res != nil && len(res.Methods) > 0 {
		sb.WriteString("### Methods\n\n")
		sb.WriteString("| Method | Outcome | Best Score | Attempts | Reason |\n")
		sb.WriteString("|--------|---------|------------|----------|--------|\n")
		for _, m := range res.Methods {
			sb.WriteString(fmt.Sprintf("| %s | %s %s | %d | %d | %s |\n",
				m.Method, outcomeEmoji(m.Outcome), m.Outcome, m.BestScore, m.Attempts, m.Reason()))
		}
		sb.WriteString("\n")
	}
}

func writeMarkdownList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("- **%s:** `%s`\n", label, strings.Join(items, "`, `")))
}

func outcomeEmoji(o models.Outcome) string {
	switch o {
	case models.OutcomePassed:
		return "🟢"
	case models.OutcomeBelowThreshold:
		return "🟡"
	case models.OutcomeSkipped:
		return "⚪"
	default:
		return "🔴"
	}
}
