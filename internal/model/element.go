package model

import (
	"strconv"
)

// NodeInfo is the attribute projection of a single accessibility node, captured
// verbatim from the live tree at the moment it was read.
type NodeInfo struct {
	Index         int        `yaml:"index"                    json:"index"`
	Class         string     `yaml:"class"                    json:"class"`
	Package       string     `yaml:"package,omitempty"        json:"package,omitempty"`
	Text          string     `yaml:"text,omitempty"           json:"text,omitempty"`
	ContentDesc   string     `yaml:"content-desc,omitempty"   json:"content-desc,omitempty"`
	ResourceID    string     `yaml:"resource-id,omitempty"    json:"resource-id,omitempty"`
	Hint          string     `yaml:"hint,omitempty"           json:"hint,omitempty"`
	Checkable     bool       `yaml:"checkable,omitempty"      json:"checkable,omitempty"`
	Checked       bool       `yaml:"checked,omitempty"        json:"checked,omitempty"`
	Clickable     bool       `yaml:"clickable,omitempty"      json:"clickable,omitempty"`
	Enabled       bool       `yaml:"enabled,omitempty"        json:"enabled,omitempty"`
	Focusable     bool       `yaml:"focusable,omitempty"      json:"focusable,omitempty"`
	Focused       bool       `yaml:"focused,omitempty"        json:"focused,omitempty"`
	Scrollable    bool       `yaml:"scrollable,omitempty"     json:"scrollable,omitempty"`
	LongClickable bool       `yaml:"long-clickable,omitempty" json:"long-clickable,omitempty"`
	Password      bool       `yaml:"password,omitempty"       json:"password,omitempty"`
	Selected      bool       `yaml:"selected,omitempty"       json:"selected,omitempty"`
	Displayed     bool       `yaml:"displayed,omitempty"      json:"displayed,omitempty"`
	Bounds        Rect       `yaml:"bounds"                   json:"bounds"`
	Range         *RangeInfo `yaml:"range,omitempty"          json:"range,omitempty"`
}

// RangeInfo is reported by progress bars, seek bars and similar widgets.
type RangeInfo struct {
	Min     float64 `yaml:"min"     json:"min"`
	Max     float64 `yaml:"max"     json:"max"`
	Current float64 `yaml:"current" json:"current"`
}

// Element is a node of a hierarchy dump: the attribute projection plus its children.
type Element struct {
	NodeInfo `yaml:",inline"`
	Children []Element `yaml:"children,omitempty" json:"children,omitempty"`
}

// DisplayText returns the text an element exposes to clients. Widgets that report
// a numeric range expose the current range value instead of their text.
func (n NodeInfo) DisplayText() string {
	if n.Range != nil {
		return strconv.FormatFloat(n.Range.Current, 'f', -1, 64)
	}
	return n.Text
}

// Attr is a single name/value attribute pair.
type Attr struct {
	Name  string
	Value string
}

// Attributes returns the projected attributes in hierarchy-dump order.
func (n NodeInfo) Attributes() []Attr {
	return []Attr{
		{"index", strconv.Itoa(n.Index)},
		{"package", n.Package},
		{"class", n.Class},
		{"text", n.DisplayText()},
		{"content-desc", n.ContentDesc},
		{"resource-id", n.ResourceID},
		{"checkable", strconv.FormatBool(n.Checkable)},
		{"checked", strconv.FormatBool(n.Checked)},
		{"clickable", strconv.FormatBool(n.Clickable)},
		{"enabled", strconv.FormatBool(n.Enabled)},
		{"focusable", strconv.FormatBool(n.Focusable)},
		{"focused", strconv.FormatBool(n.Focused)},
		{"scrollable", strconv.FormatBool(n.Scrollable)},
		{"long-clickable", strconv.FormatBool(n.LongClickable)},
		{"password", strconv.FormatBool(n.Password)},
		{"selected", strconv.FormatBool(n.Selected)},
		{"displayed", strconv.FormatBool(n.Displayed)},
		{"bounds", n.Bounds.String()},
	}
}

// attributeAliases maps client-facing attribute names to their dump names.
var attributeAliases = map[string]string{
	"name":               "content-desc",
	"contentDescription": "content-desc",
	"resourceId":         "resource-id",
	"className":          "class",
	"packageName":        "package",
	"longClickable":      "long-clickable",
}

// Attribute returns the value of the named attribute. The second result is false
// for names the projection does not carry.
func (n NodeInfo) Attribute(name string) (string, bool) {
	if alias, ok := attributeAliases[name]; ok {
		name = alias
	}
	if name == "hint" {
		return n.Hint, true
	}
	for _, a := range n.Attributes() {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
