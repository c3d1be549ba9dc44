/*
 *	Copyright 2025 The digits authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package loader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/edgevision/digits/corpus"
	"github.com/muesli/termenv"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
)

func newReportTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return headerRowStyle
			}
			if row%2 == 0 {
				return oddRowStyle
			}
			return evenRowStyle
		}).
		Headers(headers...)
}

// Report renders the data source statistics of the last LoadAll run: one table
// of per-source contributions and one table with the combined per-class
// distribution. Degrades to plain tables on dumb terminals.
func (l *MultiSourceLoader) Report() string {
	if termenv.EnvColorProfile() == termenv.Ascii {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	var sb strings.Builder
	sb.WriteString("DATA SOURCE STATISTICS\n")

	sourcesTable := newReportTable("Source", "Images", "Class distribution")
	for _, name := range l.order {
		stats := l.stats[name]
		sourcesTable.Row(name, humanize.Comma(int64(stats.Count)), formatDistribution(stats.ClassDistribution, l.cfg.NumClasses))
	}
	sb.WriteString(sourcesTable.Render())
	sb.WriteString("\n")

	if l.combined != nil {
		sb.WriteString(fmt.Sprintf("\nCOMBINED CORPUS: %s images, shape %s\n",
			humanize.Comma(int64(l.combined.Len())), l.combined.Shape()))
		combinedTable := newReportTable("Class", "Count", "Share")
		dist := l.combined.ClassDistribution(l.cfg.NumClasses)
		for class := corpus.Label(0); int(class) < l.cfg.NumClasses; class++ {
			count, ok := dist[class]
			if !ok {
				continue
			}
			share := float64(count) / float64(l.combined.Len()) * 100
			combinedTable.Row(
				fmt.Sprintf("%d", class),
				humanize.Comma(int64(count)),
				fmt.Sprintf("%.1f%%", share))
		}
		sb.WriteString(combinedTable.Render())
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatDistribution(dist map[corpus.Label]int, numClasses int) string {
	parts := make([]string, 0, len(dist))
	for class := corpus.Label(0); int(class) < numClasses; class++ {
		if count, ok := dist[class]; ok {
			parts = append(parts, fmt.Sprintf("%d:%d", class, count))
		}
	}
	return strings.Join(parts, " ")
}
