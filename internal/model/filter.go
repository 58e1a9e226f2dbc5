package model

import "strings"

// FilterByText filters elements to only those whose text, content description,
// or resource id contains the given text (case-insensitive). Parent elements are
// kept when any descendant matches so the ancestry stays visible.
func FilterByText(elements []Element, text string) []Element {
	if text == "" {
		return elements
	}
	textLower := strings.ToLower(text)
	var result []Element
	for _, el := range elements {
		matched := textMatchesElement(el.NodeInfo, textLower)
		childMatches := FilterByText(el.Children, text)

		if matched || len(childMatches) > 0 {
			filtered := el
			filtered.Children = childMatches
			result = append(result, filtered)
		}
	}
	return result
}

func textMatchesElement(n NodeInfo, textLower string) bool {
	return strings.Contains(strings.ToLower(n.DisplayText()), textLower) ||
		strings.Contains(strings.ToLower(n.ContentDesc), textLower) ||
		strings.Contains(strings.ToLower(n.ResourceID), textLower)
}

// PruneHidden removes elements that are not displayed. Children of removed
// nodes are promoted to the parent.
func PruneHidden(elements []Element) []Element {
	var result []Element
	for _, el := range elements {
		children := PruneHidden(el.Children)
		if !el.Displayed {
			result = append(result, children...)
			continue
		}
		kept := el
		kept.Children = children
		result = append(result, kept)
	}
	return result
}
