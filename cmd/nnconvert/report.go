// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/nndriver/pkg/driver"
	"github.com/gomlx/nndriver/pkg/network"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 0, 0, 0)
)

// newResultsTable creates a table where rows listed in failed are highlighted.
func newResultsTable(failed map[int]bool, alignments ...lipgloss.Position) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				return headerRowStyle
			case failed[row]:
				s = redRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			}
			return s.Align(alignment)
		})
}

// constantBytes sums the size of the payload of the constant layers of the network.
func constantBytes(net *network.Network) uint64 {
	var total uint64
	for _, layer := range net.Layers() {
		if desc, ok := layer.Descriptor().(*network.ConstantDescriptor); ok {
			total += uint64(len(desc.Tensor.Data))
		}
	}
	return total
}

// report renders the results of all models.
func report(d *driver.Driver, results []*modelResult) string {
	failed := make(map[int]bool)
	for ii, r := range results {
		if r.err != nil {
			failed[ii] = true
		}
	}
	table := newResultsTable(failed,
		lipgloss.Left, lipgloss.Center, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right, lipgloss.Right)
	table.Headers("Model", "Version", "Operations", "Supported", "Layers", "Constants", "Time")
	var totalOps, totalSupported int
	for _, r := range results {
		totalOps += r.numOperations
		totalSupported += r.numSupported
		layers, constants := "-", "-"
		if r.numLayers > 0 {
			layers = humanize.Comma(int64(r.numLayers))
			constants = humanize.Bytes(r.constantBytes)
			if r.float16 {
				constants += " (fp16)"
			}
		}
		table.Row(r.path, r.version, humanize.Comma(int64(r.numOperations)), humanize.Comma(int64(r.numSupported)),
			layers, constants, r.elapsed.Round(time.Millisecond).String())
	}

	var sb strings.Builder
	backend := d.Backend()
	sb.WriteString(titleStyle.Render(fmt.Sprintf("Backend %q: %s", backend.Name(), backend.Description())))
	sb.WriteString("\n")
	sb.WriteString(table.Render())
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d of %d operations supported, %d of %d models failed\n",
		totalSupported, totalOps, len(failed), len(results))
	for _, r := range results {
		if r.err != nil {
			fmt.Fprintf(&sb, "%s: %v\n", r.path, r.err)
		}
	}
	return sb.String()
}
