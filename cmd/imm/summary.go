package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-imm/pkg/sampling"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Width(18)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2)
)

func renderSummary(rec *sampling.Record) string {
	seeds := make([]string, len(rec.Seeds))
	for i, s := range rec.Seeds {
		seeds[i] = fmt.Sprint(s)
	}

	rows := [][2]string{
		{"run", rec.RunID},
		{"model", rec.Model},
		{"ranks x workers", fmt.Sprintf("%d x %d", rec.WorldSize, rec.Workers)},
		{"k / epsilon / l", fmt.Sprintf("%d / %g / %.4f", rec.K, rec.Epsilon, rec.L)},
		{"bound search", fmt.Sprintf("%d iterations, LB %.2f", len(rec.Iterations), rec.LowerBound)},
		{"theta", fmt.Sprint(rec.Theta)},
		{"local rr sets", fmt.Sprint(rec.PoolSize)},
		{"coverage", fmt.Sprintf("%.4f", rec.Coverage)},
		{"seeds", strings.Join(seeds, " ")},
		{"estimation", rec.ThetaEstimation.Round(time.Millisecond).String()},
		{"sampling", rec.GenerateRRSets.Round(time.Millisecond).String()},
		{"selection", rec.FindMostInfluentialSet.Round(time.Millisecond).String()},
		{"total", rec.Total.Round(time.Millisecond).String()},
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines, titleStyle.Render("IMM result"), "")
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), r[1]))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
