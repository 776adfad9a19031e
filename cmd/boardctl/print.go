package main

import (
	"fmt"
	"io"
	"strings"

	"artfolio/internal/service/health"
	"artfolio/internal/service/project"

	"github.com/fatih/color"
)

var (
	titleColor = color.New(color.FgMagenta, color.Bold)
	errorColor = color.New(color.FgRed, color.Bold)
	mutedColor = color.New(color.FgHiBlack)

	tierColors = map[health.Tier]*color.Color{
		health.TierGreen: color.New(color.FgGreen, color.Bold),
		health.TierAmber: color.New(color.FgYellow, color.Bold),
		health.TierRed:   color.New(color.FgRed, color.Bold),
	}
)

func colorFor(t health.Tier) *color.Color {
	if c, ok := tierColors[t]; ok {
		return c
	}
	return mutedColor
}

func printError(w io.Writer, format string, args ...interface{}) {
	errorColor.Fprintf(w, format+"\n", args...)
}

func printSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", 60))
}

// printBoard 输出计数汇总和过滤后的条目
func printBoard(w io.Writer, uid string, board health.Board) {
	titleColor.Fprintf(w, "Portfolio health for %s\n", uid)
	printSeparator(w)

	printCounts(w, board.Counts)
	printSeparator(w)

	if len(board.Entries) == 0 {
		mutedColor.Fprintln(w, "No projects match the current filters")
		return
	}
	for _, e := range board.Entries {
		title := e.Project.Title
		if title == "" {
			title = "(untitled)"
		}
		colorFor(e.Tier).Fprintf(w, "%-16s ", e.Tier.Label())
		fmt.Fprintf(w, "%s  %s  images=%d\n", project.FormatDate(e.Project.Date), title, len(e.Project.ImagesURLs))
	}
}

func printCounts(w io.Writer, counts health.Counts) {
	colorFor(health.TierGreen).Fprintf(w, "%-16s %d\n", health.TierGreen.Label(), counts.Green)
	colorFor(health.TierAmber).Fprintf(w, "%-16s %d\n", health.TierAmber.Label(), counts.Amber)
	colorFor(health.TierRed).Fprintf(w, "%-16s %d\n", health.TierRed.Label(), counts.Red)
	fmt.Fprintf(w, "%-16s %d\n", health.TierAll.Label(), counts.Total())
}

func printTier(w io.Writer, t health.Tier) {
	colorFor(t).Fprintf(w, "%s (%s)\n", t.Label(), t)
}
