package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"symfeat/data"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Report writes one table per dataset and extension with the shape of every
// loaded task, followed by the skipped tasks.
func Report(w io.Writer, batch *Batch) error {
	var keys []string
	groups := make(map[string][]data.Loadable)
	for _, l := range batch.Loadables() {
		key := l.Dataset().FriendlyName + "-" + l.Extension()
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], l)
	}
	sort.Strings(keys)

	for _, key := range keys {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("task", "rows", "intersected from", "columns", "classes").
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		for _, l := range groups[key] {
			before := "-"
			if n, ok := batch.Stats.RowsBefore[l.Name()]; ok {
				before = strconv.Itoa(n)
			}
			t.Row(
				l.Name(),
				strconv.Itoa(len(l.Labels())),
				before,
				strconv.Itoa(len(l.Features().Columns)),
				strconv.Itoa(countClasses(l.Labels())),
			)
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", key, t.Render()); err != nil {
			return err
		}
	}

	if len(batch.Skipped) > 0 {
		skipped := append([]string(nil), batch.Skipped...)
		sort.Strings(skipped)
		if _, err := fmt.Fprintf(w, "skipped (%d):\n", len(skipped)); err != nil {
			return err
		}
		for _, name := range skipped {
			if _, err := fmt.Fprintf(w, "  %s\n", name); err != nil {
				return err
			}
		}
	}
	return nil
}

func countClasses(labels []string) int {
	classes := make(map[string]struct{})
	for _, l := range labels {
		classes[l] = struct{}{}
	}
	return len(classes)
}
