package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// renderText renders the batch as plain text
func renderText(batch *Batch) string {
	var sb strings.Builder

	// Header
	sb.WriteString("=" + strings.Repeat("=", 78) + "\n")
	sb.WriteString(fmt.Sprintf("  ION RECOVERY REPORT v%s\n", batch.Version))
	sb.WriteString("=" + strings.Repeat("=", 78) + "\n\n")

	// Summary
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 79) + "\n")
	sb.WriteString(fmt.Sprintf("Root:             %s\n", batch.Root))
	sb.WriteString(fmt.Sprintf("Mode:             %s\n", batch.Mode))
	sb.WriteString(fmt.Sprintf("Start Time:       %s\n", batch.StartTime.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("Duration:         %s\n", FormatDuration(batch.Duration)))
	sb.WriteString(fmt.Sprintf("Files:            %d\n", len(batch.Recoveries)))
	sb.WriteString(fmt.Sprintf("ACCEPTED:         %d\n", batch.Accepted))
	sb.WriteString(fmt.Sprintf("Failed:           %d\n", batch.Failed))
	sb.WriteString(fmt.Sprintf("Errors:           %d\n", batch.Errors))
	sb.WriteString("\n")

	for i, rec := range batch.Recoveries {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, rec.Path))
		sb.WriteString(strings.Repeat("-", 79) + "\n")

		if rec.Error != "" {
			sb.WriteString(fmt.Sprintf("    Error:      %s\n\n", rec.Error))
			continue
		}
		if rec.Header != nil {
			sb.WriteString(fmt.Sprintf("    Format:     %s\n", headerLine(rec.Header)))
		}
		if rec.Payload != nil {
			sb.WriteString(fmt.Sprintf("    Payload:    %s, %s, blake3 %s\n",
				rec.Payload.Mode, humanize.Bytes(uint64(rec.PayloadSize)), rec.Payload.Hash))
		}

		res := rec.Result
		if res == nil {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(fmt.Sprintf("    Attempts:   %d (truncated: %t)\n", res.Attempts, res.Truncated))
		if best := res.Best; best != nil {
			label := "Closest:   "
			if res.Accepted {
				label = "Accepted:  "
			}
			sb.WriteString(fmt.Sprintf("    %s %s\n", label, candidateLine(best.Candidate)))
			sb.WriteString(fmt.Sprintf("    Score:      %s\n", scoreLine(best.Report, res.Threshold)))
		} else {
			sb.WriteString("    Result:     nothing decoded above zero\n")
		}
		if len(rec.Layers) > 0 {
			sb.WriteString(fmt.Sprintf("    Layers:     %s\n", strings.Join(rec.Layers, " -> ")))
		}
		if rec.OutputPath != "" {
			sb.WriteString(fmt.Sprintf("    Output:     %s\n", rec.OutputPath))
		}
		if a := rec.Analysis; a != nil && a.Size > 0 {
			sb.WriteString(fmt.Sprintf("    Lines:      %d\n", a.Lines))
			writeTextList(&sb, "Functions", a.Functions)
			writeTextList(&sb, "Classes", a.Classes)
			writeTextList(&sb, "Security", a.Security)
			for _, c := range a.Combinations {
				sb.WriteString(fmt.Sprintf("    Risk:       %s %s\n", strings.ToUpper(c.Severity), c.Name))
			}
		}
		if rec.OracleError != "" {
			sb.WriteString(fmt.Sprintf("    Oracle:     unavailable: %s\n", rec.OracleError))
		} else if rec.Oracle != nil {
			writeTextList(&sb, "Oracle fn", rec.Oracle.Functions)
			writeTextList(&sb, "Oracle cls", rec.Oracle.Classes)
		}
		if rec.Review != nil {
			sb.WriteString(fmt.Sprintf("    AI:         %s (%d%%) %s\n",
				strings.ToUpper(string(rec.Review.Verdict)), rec.Review.Confidence, cleanFragment(rec.Review.Summary, 100)))
		}

		sb.WriteString("    Methods:\n")
		for _, m := range res.Methods {
			sb.WriteString(fmt.Sprintf("      %-12s %-16s score %-4d attempts %-8d %s\n",
				m.Method, m.Outcome, m.BestScore, m.Attempts, m.Reason()))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("=" + strings.Repeat("=", 78) + "\n")
	return sb.String()
}

func writeTextList(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("    %-11s %s\n", label+":", strings.Join(items, ", ")))
}
