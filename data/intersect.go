package data

// Intersect restricts every loaded task to the filenames present in all of
// its siblings (loaded tasks with the same dataset and extension), so that
// every feature set of a dataset describes the same files.
//
// Filename sets are snapshotted before any task is filtered, which makes the
// result independent of task order. A task without loaded siblings is left
// unchanged. Unloaded tasks are ignored. Every loaded task ends Intersected.
func Intersect(tasks []*Task) {
	sets := make(map[*Task]map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if !t.Loaded() {
			continue
		}
		set := make(map[string]struct{}, len(t.filenames))
		for _, name := range t.filenames {
			set[name] = struct{}{}
		}
		sets[t] = set
	}

	for _, t := range tasks {
		if !t.Loaded() {
			continue
		}
		var common map[string]struct{}
		for _, other := range tasks {
			if !other.Loaded() || !t.siblingOf(other) {
				continue
			}
			common = intersectSets(common, sets[other])
		}
		if common != nil {
			mask := make([]bool, len(t.filenames))
			for i, name := range t.filenames {
				_, mask[i] = common[name]
			}
			t.keep(mask)
		}
		t.state = Intersected
	}
}

// intersectSets returns a ∩ b; a nil a stands for "everything".
func intersectSets(a, b map[string]struct{}) map[string]struct{} {
	if a == nil {
		out := make(map[string]struct{}, len(b))
		for k := range b {
			out[k] = struct{}{}
		}
		return out
	}
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}
