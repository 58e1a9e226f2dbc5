package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"go.uber.org/zap/zaptest"

	"github.com/mj1618/uiautomator-server/internal/element"
	"github.com/mj1618/uiautomator-server/internal/finder"
	"github.com/mj1618/uiautomator-server/internal/input"
	"github.com/mj1618/uiautomator-server/internal/model"
	"github.com/mj1618/uiautomator-server/internal/pagesource"
	"github.com/mj1618/uiautomator-server/internal/platform"
	"github.com/mj1618/uiautomator-server/internal/selector"
	"github.com/mj1618/uiautomator-server/internal/session"
	"github.com/mj1618/uiautomator-server/internal/status"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want status.Code
	}{
		{"typed", status.NoSuchElementf("missing"), status.NoSuchElement},
		{"no session", session.ErrNoSession, status.NoSuchDriver},
		{"stale", fmt.Errorf("text: %w", element.ErrStale), status.StaleElementReference},
		{"conversion", fmt.Errorf("%w: x", finder.ErrConversion), status.StaleElementReference},
		{"not found", finder.ErrNotFound, status.NoSuchElement},
		{"selector", selector.ErrInvalidSelector, status.InvalidSelector},
		{"xpath", pagesource.ErrInvalidExpression, status.InvalidSelector},
		{"strategy", model.ErrUnknownStrategy, status.InvalidSelector},
		{"out of bounds", input.ErrOutOfBounds, status.InvalidElementCoordinates},
		{"rotation angle", input.ErrInvalidRotation, status.InvalidElementCoordinates},
		{"rotation axis", input.ErrUnsupportedAxis, status.UnknownCommand},
		{"unsupported", platform.ErrUnsupported, status.UnknownCommand},
		{"actions", input.ErrInvalidActions, status.JSONDecoderError},
		{"not visible", element.ErrNotVisible, status.ElementNotVisible},
		{"action failed", element.ErrActionFailed, status.InvalidElementState},
		{"injection failed", input.ErrInjectionFailed, status.InvalidElementState},
		{"event timeout", platform.ErrEventTimeout, status.Timeout},
		{"deadline", context.DeadlineExceeded, status.Timeout},
		{"setting", session.ErrInvalidSetting, status.UnknownError},
		{"window", fmt.Errorf("window %q: %w", "popup", platform.ErrNoSuchWindow), status.NoSuchWindow},
		{"typed window", status.NoSuchWindowf("gone"), status.NoSuchWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se, ok := classify(tt.err)
			if !ok {
				t.Fatalf("classify(%v) not categorized", tt.err)
			}
			if se.Code != tt.want {
				t.Errorf("classify(%v) = %s, want %s", tt.err, se.Code, tt.want)
			}
			if !errors.Is(se, tt.err) {
				t.Errorf("classified error does not wrap %v", tt.err)
			}
		})
	}
	if _, ok := classify(errors.New("disk on fire")); ok {
		t.Error("uncategorized error was classified")
	}
}

func guardHarness(t *testing.T) *Server {
	t.Helper()
	return New(&platform.Provider{}, session.NewManager(), Config{}, zaptest.NewLogger(t))
}

func serve(s *Server, h handlerFunc) (int, envelope, string) {
	rec := httptest.NewRecorder()
	s.guard(h)(rec, httptest.NewRequest("GET", "/x", nil))
	var env envelope
	raw := rec.Body.String()
	_ = json.Unmarshal([]byte(raw), &env)
	return rec.Code, env, raw
}

func TestGuardRecoversPanics(t *testing.T) {
	s := guardHarness(t)
	code, env, _ := serve(s, func(*http.Request) (any, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	})
	if code != http.StatusInternalServerError || env.Status != status.UnknownError {
		t.Fatalf("panic produced %d %s", code, env.Status)
	}
	msg, _ := env.Value.(string)
	if !strings.Contains(msg, "assignment to entry in nil map") || !strings.Contains(msg, "goroutine") {
		t.Errorf("panic value lacks message or stack: %q", msg)
	}

	// The server keeps answering after a panic.
	code, env, _ = serve(s, func(*http.Request) (any, error) { return "ok", nil })
	if code != http.StatusOK || env.Value != "ok" {
		t.Errorf("after panic got %d %v", code, env.Value)
	}
}

func TestGuardFailures(t *testing.T) {
	s := guardHarness(t)
	tests := []struct {
		name      string
		err       error
		want      status.Code
		wantStack bool
	}{
		{"typed", status.InvalidSelectorf("bad"), status.InvalidSelector, false},
		{"sentinel", fmt.Errorf("find: %w", finder.ErrNotFound), status.NoSuchElement, false},
		{"uncategorized", errors.New("disk on fire"), status.UnknownError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, env, raw := serve(s, func(*http.Request) (any, error) { return nil, tt.err })
			if env.Status != tt.want {
				t.Errorf("status = %s, want %s", env.Status, tt.want)
			}
			if got := strings.Contains(raw, "goroutine"); got != tt.wantStack {
				t.Errorf("stack in response = %v, want %v: %s", got, tt.wantStack, raw)
			}
			if env.SessionID != nil {
				t.Errorf("sessionId = %q, want null", *env.SessionID)
			}
		})
	}
}

func TestNullValue(t *testing.T) {
	s := guardHarness(t)
	_, _, raw := serve(s, func(*http.Request) (any, error) { return nil, nil })
	if !strings.Contains(raw, `"value":null`) || !strings.Contains(raw, `"sessionId":null`) {
		t.Errorf("body = %s", raw)
	}
}

func TestUnsupportedPlatform(t *testing.T) {
	s := guardHarness(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	res, err := http.Post(ts.URL+"/session", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	var created envelope
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if created.SessionID == nil {
		t.Fatal("no session id")
	}
	res, err = http.Get(ts.URL + "/session/" + *created.SessionID + "/screenshot")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	if env.Status != status.UnknownCommand {
		t.Errorf("screenshot without a bridge = %s", env.Status)
	}
}

func TestDecode(t *testing.T) {
	type body struct {
		Strategy string  `json:"strategy"`
		Selector string  `json:"selector"`
		Scale    float64 `json:"scale"`
	}
	tests := []struct {
		name    string
		raw     string
		want    body
		wantErr bool
	}{
		{"object", `{"strategy":"id","selector":"a:id/x","scale":0.5}`, body{"id", "a:id/x", 0.5}, false},
		{"unknown fields", `{"strategy":"xpath","using":"ignored"}`, body{Strategy: "xpath"}, false},
		{"empty", "  \n", body{Strategy: "keep"}, false},
		{"truncated", `{"strategy":`, body{}, true},
		{"wrong type", `{"strategy":7}`, body{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := body{}
			if tt.name == "empty" {
				got.Strategy = "keep"
			}
			err := decode(httptest.NewRequest("POST", "/x", strings.NewReader(tt.raw)), &got)
			if tt.wantErr {
				if !status.Is(err, status.JSONDecoderError) {
					t.Fatalf("decode(%s) error = %v, want JsonDecoderError", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode(%s): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("decode(%s) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
