package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/services/classifier"
)

var (
	bullish = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#73F59F"}
	bearish = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"}
	neutral = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#A0A0A0"}

	labelStyle = lipgloss.NewStyle().Foreground(neutral)
	trailStyle = lipgloss.NewStyle().PaddingLeft(2)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func actionStyle(a domain.Action) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch {
	case a.IsBuy():
		return s.Foreground(bullish)
	case a.IsSell():
		return s.Foreground(bearish)
	default:
		return s.Foreground(neutral)
	}
}

// renderDecision formats one record for the terminal.
func renderDecision(rec domain.DecisionRecord) string {
	var b strings.Builder

	b.WriteString(actionStyle(rec.Action).Render(string(rec.Action)))
	if rec.Vetoed {
		b.WriteString(actionStyle(rec.Action).Render(" (security veto)"))
	}
	b.WriteString("\n")

	field := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", label)), value)
	}
	field("confidence", fmt.Sprintf("%.3f", rec.Confidence))
	field("size", fmt.Sprintf("%.4f of %.4f", rec.SizeFraction, rec.MaxSize))
	field("net score", fmt.Sprintf("%+.3f", rec.NetScore))
	if rec.StopLoss > 0 {
		field("stop/take", fmt.Sprintf("%.4f / %.4f", rec.StopLoss, rec.TakeProfit))
	}
	r := rec.RegimeSnapshot
	field("regime", fmt.Sprintf("%s, %s", r.CooperationRegime, r.TrendPhase))
	field("uncertainty", fmt.Sprintf("%.3f (%s)", r.Uncertainty, r.UncertaintyBand))

	b.WriteString(labelStyle.Render("votes"))
	for _, v := range rec.VotesSnapshot {
		line := fmt.Sprintf("%-18s %-32s %-7s %.2f", v.PerspectiveID, v.StateID, v.Direction, v.Magnitude)
		if st, ok := classifier.Lookup(v.PerspectiveID, v.StateID); ok && st.Description != "" {
			line += "  " + st.Description
		}
		b.WriteString("\n")
		b.WriteString(trailStyle.Render(line))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("reasoning"))
	for _, line := range rec.ReasoningTrail {
		b.WriteString("\n")
		b.WriteString(trailStyle.Render(line))
	}

	return boxStyle.Render(b.String())
}

// renderHistory formats records oldest first as one line each.
func renderHistory(records []domain.DecisionRecord) string {
	if len(records) == 0 {
		return labelStyle.Render("no decisions recorded")
	}

	lines := make([]string, 0, len(records))
	for i, rec := range records {
		lines = append(lines, fmt.Sprintf("%3d  %s  %s  conf %.3f  size %.4f  net %+.3f  %s",
			i+1,
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			actionStyle(rec.Action).Render(fmt.Sprintf("%-14s", rec.Action)),
			rec.Confidence,
			rec.SizeFraction,
			rec.NetScore,
			rec.RegimeSnapshot.CooperationRegime,
		))
	}
	return strings.Join(lines, "\n")
}
