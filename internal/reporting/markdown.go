package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Screening Report: %s\n\n", r.Strategy))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n", r.StartDate, r.EndDate))

	// Funnel
	sb.WriteString("## Stage Funnel\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Universe | %d |\n", r.Funnel.Universe))
	sb.WriteString(fmt.Sprintf("| Evaluated | %d |\n", r.Funnel.Evaluated))
	sb.WriteString(fmt.Sprintf("| Candidates Checked | %d |\n", r.Funnel.Checked))
	for i, c := range r.Funnel.StageCounts {
		sb.WriteString(fmt.Sprintf("| Passed Stage %d | %d |\n", i+1, c))
	}
	sb.WriteString(fmt.Sprintf("| Signals | %d |\n\n", r.Funnel.Selected))

	// Signals
	sb.WriteString("## Signals\n\n")
	if len(r.Signals) == 0 {
		sb.WriteString("No signals.\n\n")
	} else {
		sb.WriteString("| Date | Code | Name | Entry | Stop | TP1 | TP2 | Support |\n")
		sb.WriteString("|------|------|------|-------|------|-----|-----|---------|\n")
		for _, s := range r.Signals {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.0f | %.0f | %.0f | %.0f | %.0f |\n",
				s.SignalDate, s.Code, s.Name, s.EntryPrice,
				s.StopLoss, s.TakeProfit1, s.TakeProfit2, s.SupportLow))
		}
		sb.WriteString("\n")
	}

	// Backtest
	if r.Backtest != nil {
		sb.WriteString("## Backtest\n\n")
		s := r.Backtest
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.Total))
		sb.WriteString(fmt.Sprintf("| Wins | %d (%.1f%%) |\n", s.Wins, s.WinRate()))
		sb.WriteString(fmt.Sprintf("| Losses | %d |\n", s.Losses))
		sb.WriteString(fmt.Sprintf("| Avg Return | %+.2f%% |\n", s.AvgReturnPct))
		sb.WriteString(fmt.Sprintf("| Max Return | %+.2f%% |\n", s.MaxReturnPct))
		sb.WriteString(fmt.Sprintf("| Min Return | %+.2f%% |\n", s.MinReturnPct))
		sb.WriteString("\n### Exit Reasons\n\n")
		sb.WriteString("| Reason | Count |\n")
		sb.WriteString("|--------|-------|\n")
		for _, reason := range exitOrder {
			if c, ok := s.ExitCounts[reason]; ok {
				sb.WriteString(fmt.Sprintf("| %s | %d |\n", reason, c))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
