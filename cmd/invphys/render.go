package main

import (
	"fmt"
	"strings"

	"github.com/born-ml/invphys/internal/config"
	"github.com/born-ml/invphys/internal/physics/generator"
	"github.com/born-ml/invphys/internal/store"
	"github.com/charmbracelet/lipgloss"
)

// previewWidth caps the number of columns drawn per mask row.
const previewWidth = 48

var (
	titleStyle = lipgloss.NewStyle().Background(lipgloss.Color("13")).Foreground(lipgloss.Color("0")).Padding(0, 2)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Width(18)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(cfg config.Config, run store.Run, stats Stats) string {
	rows := [][2]string{
		{"run", run.ID},
		{"image size", fmt.Sprintf("%v", cfg.ImgSize)},
		{"operator", cfg.Operator},
		{"generator", cfg.Generator},
		{"batches", fmt.Sprintf("%d x %d masks", stats.Batches, cfg.BatchSize)},
		{"sampled rows", fmt.Sprintf("%.1f%%", 100*stats.SampledFraction)},
		{"haze mean", fmt.Sprintf("%.4f", stats.HazeMean)},
		{"mri rel. error", fmt.Sprintf("%.4f", stats.MRIError)},
	}
	if cfg.Store != "" {
		rows = append(rows, [2]string{"ledger", cfg.Store})
	}
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = keyStyle.Render(r[0]) + r[1]
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("invphys "+version),
		boxStyle.Render(strings.Join(lines, "\n")))
}

// renderPreview draws element of a mask sample, one text line per k-space row:
// '#' for sampled entries and '.' for the rest.
func renderPreview(sample *generator.MaskSample, element int) string {
	shape := sample.Mask.Shape()
	h, w := shape[2], shape[3]
	cols := min(w, previewWidth)
	var sb strings.Builder
	for r := 0; r < h; r++ {
		for c := 0; c < cols; c++ {
			if sample.Mask.At(element, 0, r, c) != 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if r < h-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
