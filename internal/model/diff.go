package model

import (
	"crypto/sha256"
	"fmt"
	"strconv"
)

// NodeChange is a matched element whose mutable properties differ between reads.
type NodeChange struct {
	Path       string               `yaml:"path"                  json:"path"`
	Class      string               `yaml:"class"                 json:"class"`
	ResourceID string               `yaml:"resource-id,omitempty" json:"resource-id,omitempty"`
	Changes    map[string][2]string `yaml:"changes"               json:"changes"`
}

// TreeDiff is the result of comparing two hierarchy dumps by structural key.
type TreeDiff struct {
	Added          []FlatElement `yaml:"added,omitempty"   json:"added,omitempty"`
	Removed        []FlatElement `yaml:"removed,omitempty" json:"removed,omitempty"`
	Changed        []NodeChange  `yaml:"changed,omitempty" json:"changed,omitempty"`
	UnchangedCount int           `yaml:"unchanged_count"   json:"unchanged_count"`
}

// StructuralKey computes a stable identity for a node from the parts of its
// projection that do not change while the node stays on screen: class,
// resource id, content description, sibling index and tree path. Text, bounds
// and state flags are excluded.
func StructuralKey(n NodeInfo, path string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%d|%s", n.Class, n.ResourceID, n.ContentDesc, n.Index, path)
	return fmt.Sprintf("%x", h.Sum(nil))[:16]
}

// DiffTrees compares two flat element lists matched by StructuralKey.
// Duplicate keys within one list keep the last occurrence.
func DiffTrees(prev, curr []FlatElement) TreeDiff {
	prevByKey := make(map[string]FlatElement, len(prev))
	for _, el := range prev {
		prevByKey[StructuralKey(el.NodeInfo, el.Path)] = el
	}
	currByKey := make(map[string]FlatElement, len(curr))
	for _, el := range curr {
		currByKey[StructuralKey(el.NodeInfo, el.Path)] = el
	}

	var diff TreeDiff
	for _, el := range curr {
		prevEl, existed := prevByKey[StructuralKey(el.NodeInfo, el.Path)]
		if !existed {
			diff.Added = append(diff.Added, el)
			continue
		}
		if changes := diffMutable(prevEl.NodeInfo, el.NodeInfo); changes != nil {
			diff.Changed = append(diff.Changed, NodeChange{
				Path:       el.Path,
				Class:      el.Class,
				ResourceID: el.ResourceID,
				Changes:    changes,
			})
		} else {
			diff.UnchangedCount++
		}
	}
	for _, el := range prev {
		if _, exists := currByKey[StructuralKey(el.NodeInfo, el.Path)]; !exists {
			diff.Removed = append(diff.Removed, el)
		}
	}
	return diff
}

// diffMutable compares the properties excluded from the structural key.
func diffMutable(prev, curr NodeInfo) map[string][2]string {
	diffs := make(map[string][2]string)
	if prev.DisplayText() != curr.DisplayText() {
		diffs["text"] = [2]string{prev.DisplayText(), curr.DisplayText()}
	}
	if prev.Bounds != curr.Bounds {
		diffs["bounds"] = [2]string{prev.Bounds.String(), curr.Bounds.String()}
	}
	flags := []struct {
		name       string
		prev, curr bool
	}{
		{"checked", prev.Checked, curr.Checked},
		{"enabled", prev.Enabled, curr.Enabled},
		{"focused", prev.Focused, curr.Focused},
		{"selected", prev.Selected, curr.Selected},
		{"displayed", prev.Displayed, curr.Displayed},
	}
	for _, f := range flags {
		if f.prev != f.curr {
			diffs[f.name] = [2]string{strconv.FormatBool(f.prev), strconv.FormatBool(f.curr)}
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	return diffs
}
