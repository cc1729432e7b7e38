package main

import (
	"strconv"

	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/Gthulhu/scx_serverless/plugin/classify"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// renderSlices draws the argument to slice mapping of classifier.
func renderSlices(mode string, classifier plugin.SliceClassifier) string {
	minArg, maxArg := classifier.Bounds()
	rows := make([][]string, 0, maxArg-minArg+1)
	for arg := minArg; ; arg++ {
		rows = append(rows, []string{
			strconv.FormatInt(arg, 10),
			classify.Describe(classifier.Classify(arg)),
		})
		if arg == maxArg {
			break
		}
	}

	title := lipgloss.NewStyle().Bold(true).Render("profile " + mode)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ARG", "SLICE").
		Rows(rows...)
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String())
}
