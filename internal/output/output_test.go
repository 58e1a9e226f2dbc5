package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/uiautomator-server/internal/model"
)

func sampleDump() DumpResult {
	return DumpResult{
		Source:   "login.xml",
		Width:    1080,
		Height:   1920,
		Elements: []model.Element{
			{NodeInfo: model.NodeInfo{Class: "android.widget.Button", Text: "OK", Enabled: true, Bounds: model.Rect{X: 10, Y: 20, Width: 100, Height: 30}}},
		},
	}
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintYAML(&buf, sampleDump()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// YAML output should be multi-line
	if strings.Count(out, "\n") <= 1 {
		t.Errorf("YAML output should be multi-line, got:\n%s", out)
	}
	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["source"] != "login.xml" {
		t.Errorf("source: got %v, want %q", decoded["source"], "login.xml")
	}
	els, _ := decoded["elements"].([]interface{})
	if len(els) != 1 {
		t.Fatalf("elements: got %d, want 1", len(els))
	}
	if el := els[0].(map[string]interface{}); el["class"] != "android.widget.Button" || el["text"] != "OK" {
		t.Errorf("element not inlined: %v", el)
	}
}

func TestPrintJSON_Compact(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, sampleDump(), false); err != nil {
		t.Fatal(err)
	}
	// Compact output should be a single line (plus newline from Encode)
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("compact output should be single line, got:\n%s", buf.String())
	}
	var decoded DumpResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if diff := cmp.Diff(sampleDump(), decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintJSON_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSON(&buf, FindResult{Strategy: "id", Selector: "ok", Elements: []FoundElement{}}, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  \"strategy\": \"id\"") {
		t.Errorf("pretty output not indented:\n%s", buf.String())
	}
	// HTML characters stay literal.
	buf.Reset()
	if err := PrintJSON(&buf, map[string]string{"xpath": "//a[@x<1]"}, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<") {
		t.Errorf("html was escaped: %s", buf.String())
	}
}

func TestDumpResult_OmitEmpty(t *testing.T) {
	data, err := yaml.Marshal(DumpResult{Elements: []model.Element{}})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["source"]; ok {
		t.Error("empty source should be omitted")
	}
	for _, key := range []string{"rotation", "width", "height", "elements"} {
		if _, ok := m[key]; !ok {
			t.Errorf("%s should always be present", key)
		}
	}
}

func TestPrinter(t *testing.T) {
	tests := []struct {
		format  Format
		value   interface{}
		want    string
		wantErr bool
	}{
		{FormatXML, "<hierarchy/>\n\n", "<hierarchy/>\n", false},
		{FormatXML, sampleDump(), "", true},
		{FormatJSON, map[string]int{"count": 2}, "{\"count\":2}\n", false},
		{FormatYAML, map[string]int{"count": 2}, "count: 2\n", false},
		{Format("toml"), 1, "", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		err := Printer{W: &buf, Format: tt.format}.Print(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.format, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && buf.String() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.format, buf.String(), tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"yaml", "JSON", "xml"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q): %v", s, err)
		}
	}
	if _, err := ParseFormat("agent"); err == nil {
		t.Error("ParseFormat(agent) accepted")
	}
}
