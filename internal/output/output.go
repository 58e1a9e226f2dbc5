// Package output prints the results of the offline CLI commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mj1618/uiautomator-server/internal/model"
)

// Format represents the output format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	// FormatXML is the page-source dump. Only hierarchy dumps support it.
	FormatXML Format = "xml"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatYAML, FormatJSON, FormatXML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use yaml, json or xml)", s)
	}
}

// DumpResult is the top-level output of the `dump` command.
type DumpResult struct {
	Source   string          `yaml:"source,omitempty" json:"source,omitempty"`
	Rotation int             `yaml:"rotation"         json:"rotation"`
	Width    int             `yaml:"width"            json:"width"`
	Height   int             `yaml:"height"           json:"height"`
	Elements []model.Element `yaml:"elements"         json:"elements"`
}

// DumpFlatResult is the top-level output when --flat is used.
type DumpFlatResult struct {
	Source   string              `yaml:"source,omitempty" json:"source,omitempty"`
	Rotation int                 `yaml:"rotation"         json:"rotation"`
	Width    int                 `yaml:"width"            json:"width"`
	Height   int                 `yaml:"height"           json:"height"`
	Elements []model.FlatElement `yaml:"elements"         json:"elements"`
}

// DiffResult is the output of `dump --diff`.
type DiffResult struct {
	Before string         `yaml:"before" json:"before"`
	After  string         `yaml:"after"  json:"after"`
	Diff   model.TreeDiff `yaml:"diff"   json:"diff"`
}

// FoundElement is one match reported by the `find` command.
type FoundElement struct {
	model.NodeInfo `yaml:",inline"`
	Key            string `yaml:"key"  json:"key"`
	Path           string `yaml:"path" json:"path"`
}

// FindResult is the top-level output of the `find` command.
type FindResult struct {
	Strategy string         `yaml:"strategy" json:"strategy"`
	Selector string         `yaml:"selector" json:"selector"`
	Count    int            `yaml:"count"    json:"count"`
	Elements []FoundElement `yaml:"elements" json:"elements"`
}

// Printer writes values in one format.
type Printer struct {
	W      io.Writer
	Format Format
	Pretty bool
}

// Print serializes v in the printer's format. XML output accepts an already
// rendered document only.
func (p Printer) Print(v interface{}) error {
	switch p.Format {
	case FormatJSON:
		return PrintJSON(p.W, v, p.Pretty)
	case FormatYAML, "":
		return PrintYAML(p.W, v)
	case FormatXML:
		doc, ok := v.(string)
		if !ok {
			return fmt.Errorf("xml output is only available for hierarchy dumps")
		}
		_, err := io.WriteString(p.W, strings.TrimRight(doc, "\n")+"\n")
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", p.Format)
	}
}

// PrintJSON serializes v to w as JSON.
// If pretty is true, uses indentation; otherwise single-line.
func PrintJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// PrintYAML serializes v to w as YAML.
func PrintYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("yaml encode: %w", err)
	}
	return enc.Close()
}
