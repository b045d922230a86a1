package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ConcatTask joins the feature columns of sibling tasks row by row. Column
// names are qualified with the feature set name ("musif.Tempo") so that
// columns of different tools never collide.
type ConcatTask struct {
	members []*Task

	mu        sync.Mutex
	loaded    bool
	features  *FeatureTable
	labels    []string
	filenames []string
}

func NewConcatTask(members ...*Task) (*ConcatTask, error) {
	if len(members) < 2 {
		return nil, fmt.Errorf("concat task needs at least 2 members, got %d", len(members))
	}
	first := members[0]
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.dataset.Name != first.dataset.Name || m.extension != first.extension {
			return nil, fmt.Errorf("cannot concat %s with %s: different dataset or extension", first.Name(), m.Name())
		}
		if _, dup := seen[m.featureSet.Name]; dup {
			return nil, fmt.Errorf("feature set %s appears twice in concat task", m.featureSet.Name)
		}
		seen[m.featureSet.Name] = struct{}{}
	}
	return &ConcatTask{members: members}, nil
}

func (c *ConcatTask) Name() string {
	names := make([]string, len(c.members))
	for i, m := range c.members {
		names[i] = m.featureSet.Name
	}
	first := c.members[0]
	return first.dataset.Name + "-" + strings.Join(names, "+") + "-" + strings.TrimPrefix(first.extension, ".")
}

func (c *ConcatTask) Members() []*Task { return c.members }
func (c *ConcatTask) Dataset() *Dataset { return c.members[0].dataset }
func (c *ConcatTask) Extension() string { return c.members[0].extension }
func (c *ConcatTask) Features() *FeatureTable { return c.features }
func (c *ConcatTask) Labels() []string { return c.labels }
func (c *ConcatTask) Filenames() []string { return c.filenames }

// Load loads the members if needed, sorts them by filename and checks that
// they agree on filenames and labels before joining their columns.
func (c *ConcatTask) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return nil
	}
	for _, m := range c.members {
		if err := m.Load(ctx); err != nil {
			return fmt.Errorf("concat %s: %w", c.Name(), err)
		}
	}

	sorted := make([]*FeatureTable, len(c.members))
	var labels, filenames []string
	for i, m := range c.members {
		order := filenameOrder(m.filenames)
		table := m.features.permute(order)
		memberLabels := permuteStrings(m.labels, order)
		memberFilenames := permuteStrings(m.filenames, order)

		if i == 0 {
			labels, filenames = memberLabels, memberFilenames
		} else if err := sameRows(filenames, labels, memberFilenames, memberLabels); err != nil {
			return fmt.Errorf("concat %s: %s vs %s: %w", c.Name(), c.members[0].Name(), m.Name(), err)
		}
		sorted[i] = table
	}

	joined := &FeatureTable{Rows: make([][]float64, len(labels))}
	for i, m := range c.members {
		for _, col := range sorted[i].Columns {
			joined.Columns = append(joined.Columns, m.featureSet.Name+"."+col)
		}
	}
	for r := range joined.Rows {
		row := make([]float64, 0, len(joined.Columns))
		for _, table := range sorted {
			row = append(row, table.Rows[r]...)
		}
		joined.Rows[r] = row
	}

	c.features, c.labels, c.filenames = joined, labels, filenames
	c.loaded = true
	return nil
}

func sameRows(filenames, labels, otherFilenames, otherLabels []string) error {
	if len(otherLabels) != len(labels) {
		return fmt.Errorf("%d rows vs %d: %w", len(labels), len(otherLabels), ErrLabelMismatch)
	}
	for i := range labels {
		if filenames[i] != otherFilenames[i] {
			return fmt.Errorf("row %d: file %q vs %q: %w", i, filenames[i], otherFilenames[i], ErrLabelMismatch)
		}
		if labels[i] != otherLabels[i] {
			return fmt.Errorf("file %q: label %q vs %q: %w", filenames[i], labels[i], otherLabels[i], ErrLabelMismatch)
		}
	}
	return nil
}

func filenameOrder(filenames []string) []int {
	order := make([]int, len(filenames))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return filenames[order[a]] < filenames[order[b]]
	})
	return order
}

func permuteStrings(values []string, order []int) []string {
	out := make([]string, len(order))
	for i, idx := range order {
		out[i] = values[idx]
	}
	return out
}
