package model

import "strings"

// FlatElement is an element with a path breadcrumb instead of children.
type FlatElement struct {
	NodeInfo `yaml:",inline"`
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
}

// ShortClass strips the package prefix from a fully-qualified widget class name.
func ShortClass(class string) string {
	if i := strings.LastIndex(class, "."); i >= 0 {
		return class[i+1:]
	}
	return class
}

// FlattenElements converts a tree of elements into a flat list.
// Each element gets a path string showing its location in the tree
// using short class names joined with " > ".
func FlattenElements(elements []Element) []FlatElement {
	var result []FlatElement
	for _, el := range elements {
		flattenRecursive(el, "", &result)
	}
	return result
}

func flattenRecursive(el Element, parentPath string, result *[]FlatElement) {
	currentPath := ShortClass(el.Class)
	if parentPath != "" {
		currentPath = parentPath + " > " + currentPath
	}

	*result = append(*result, FlatElement{NodeInfo: el.NodeInfo, Path: currentPath})

	for _, child := range el.Children {
		flattenRecursive(child, currentPath, result)
	}
}
