package server

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

// toolResult is the YAML body of every MCP tool response.
type toolResult struct {
	OK       bool           `yaml:"ok"`
	Action   string         `yaml:"action"`
	Elements []foundElement `yaml:"elements,omitempty"`
	Text     *string        `yaml:"text,omitempty"`
	Status   string         `yaml:"status,omitempty"`
	Error    string         `yaml:"error,omitempty"`
}

type foundElement struct {
	ID         string `yaml:"id"`
	Class      string `yaml:"class"`
	Text       string `yaml:"text,omitempty"`
	ResourceID string `yaml:"resource-id,omitempty"`
	Desc       string `yaml:"content-desc,omitempty"`
	Bounds     string `yaml:"bounds"`
}

// resultToText serializes a toolResult to YAML for the MCP response.
func resultToText(result toolResult) string {
	b, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Sprintf("ok: %v\naction: %s\nerror: %s", result.OK, result.Action, result.Error)
	}
	return string(b)
}

func toolResponse(result toolResult, err error) *mcp.CallToolResult {
	if err != nil {
		result.OK = false
		result.Error = err.Error()
		code := status.UnknownError
		if se, ok := classify(err); ok {
			code = se.Code
		}
		result.Status = code.String()
		return mcp.NewToolResultError(resultToText(result))
	}
	result.OK = true
	return mcp.NewToolResultText(resultToText(result))
}

// NewMCP builds an MCP server whose tools drive the same core as the HTTP
// routes. Tools share the active session, starting one when none exists.
func NewMCP(s *Server, version string) *mcpserver.MCPServer {
	m := mcpserver.NewMCPServer("uiautomator-server", version)

	m.AddTool(
		mcp.NewTool("find_elements",
			mcp.WithDescription("Find UI elements. Returns element ids usable with the other tools, with class, text, resource id and bounds."),
			mcp.WithString("strategy", mcp.Required(), mcp.Description("Locator strategy: id, accessibility id, class name, xpath, -android uiautomator")),
			mcp.WithString("selector", mcp.Required(), mcp.Description("Locator value")),
			mcp.WithNumber("timeout_ms", mcp.Description("Keep retrying for this long before returning no elements")),
		),
		s.handleMCPFind,
	)
	m.AddTool(
		mcp.NewTool("click_element",
			mcp.WithDescription("Tap the center of an element found by find_elements"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Element id")),
		),
		s.handleMCPClick,
	)
	m.AddTool(
		mcp.NewTool("element_text",
			mcp.WithDescription("Read the text of an element found by find_elements"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Element id")),
		),
		s.handleMCPText,
	)
	m.AddTool(
		mcp.NewTool("page_source",
			mcp.WithDescription("Dump the current UI hierarchy as XML"),
		),
		s.handleMCPSource,
	)
	m.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the screen as a PNG image"),
			mcp.WithNumber("scale", mcp.Description("Scale factor in (0, 1] (default 0.5)")),
		),
		s.handleMCPScreenshot,
	)
	return m
}

func (s *Server) mcpSession() *session.Session {
	return s.sessions.CurrentOrCreate(nil)
}

func (s *Server) handleMCPFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	result := toolResult{Action: "find_elements"}
	req := findRequest{
		Strategy: stringParam(params, "strategy", ""),
		Selector: stringParam(params, "selector", ""),
	}
	loc, err := req.locator()
	if err != nil {
		return toolResponse(result, err), nil
	}
	sess := s.mcpSession()
	timeout := time.Duration(intParam(params, "timeout_ms", 0)) * time.Millisecond
	hs, err := s.finder.FindElements(ctx, nil, loc, timeout)
	if err != nil {
		return toolResponse(result, err), nil
	}
	result.Elements = make([]foundElement, 0, len(hs))
	for _, h := range hs {
		info, err := h.Info()
		if err != nil {
			continue
		}
		result.Elements = append(result.Elements, describe(sess.Cache.Add(h), info))
	}
	return toolResponse(result, nil), nil
}

func describe(id string, info model.NodeInfo) foundElement {
	return foundElement{
		ID:         id,
		Class:      info.Class,
		Text:       info.DisplayText(),
		ResourceID: info.ResourceID,
		Desc:       info.ContentDesc,
		Bounds:     info.Bounds.String(),
	}
}

func (s *Server) mcpElement(request mcp.CallToolRequest) (*session.Session, element.Handle, error) {
	sess := s.mcpSession()
	h, err := lookupElement(sess, stringParam(request.GetArguments(), "id", ""))
	return sess, h, err
}

func (s *Server) handleMCPClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := toolResult{Action: "click_element"}
	sess, h, err := s.mcpElement(request)
	if err == nil {
		err = h.Click(ctx)
	}
	if err == nil {
		s.settle(ctx, sess)
	}
	return toolResponse(result, err), nil
}

func (s *Server) handleMCPText(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := toolResult{Action: "element_text"}
	_, h, err := s.mcpElement(request)
	if err != nil {
		return toolResponse(result, err), nil
	}
	text, err := h.Text()
	result.Text = &text
	return toolResponse(result, err), nil
}

func (s *Server) handleMCPSource(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := s.pageSource()
	if err != nil {
		return toolResponse(toolResult{Action: "page_source"}, err), nil
	}
	return mcp.NewToolResultText(src), nil
}

func (s *Server) handleMCPScreenshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scale := 0.5
	if v, ok := request.GetArguments()["scale"].(float64); ok {
		scale = v
	}
	b64, err := s.screenshot(nil, scale)
	if err != nil {
		return toolResponse(toolResult{Action: "screenshot"}, err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.ImageContent{
				Type:     "image",
				Data:     b64,
				MIMEType: "image/png",
			},
		},
	}, nil
}

func stringParam(params map[string]interface{}, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case int64:
			return int(n)
		}
	}
	return defaultVal
}
