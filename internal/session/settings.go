package session

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrInvalidSetting is returned when a known setting has a value of the
// wrong type or range.
var ErrInvalidSetting = errors.New("invalid setting")

// Setting names as they appear on the wire.
const (
	KeyWaitForIdleTimeout          = "waitForIdleTimeout"
	KeyActionAcknowledgmentTimeout = "actionAcknowledgmentTimeout"
	KeyScrollAcknowledgmentTimeout = "scrollAcknowledgmentTimeout"
	KeyWaitForSelectorTimeout      = "waitForSelectorTimeout"
	KeyShouldUseCompactResponses   = "shouldUseCompactResponses"
	KeyElementResponseAttributes   = "elementResponseAttributes"
	KeyScreenshotScale             = "screenshotScale"
)

// Settings is the mutable per-session configuration consulted by handlers.
type Settings struct {
	WaitForIdleTimeout          time.Duration
	ActionAcknowledgmentTimeout time.Duration
	ScrollAcknowledgmentTimeout time.Duration
	WaitForSelectorTimeout      time.Duration
	ShouldUseCompactResponses   bool
	ElementResponseAttributes   []string
	ScreenshotScale             float64

	// Extra holds unrecognized keys verbatim.
	Extra map[string]any
}

// DefaultSettings returns the settings a session starts with when the
// server configuration does not override them.
func DefaultSettings() Settings {
	return Settings{
		WaitForIdleTimeout:          10 * time.Second,
		ActionAcknowledgmentTimeout: 3 * time.Second,
		ScrollAcknowledgmentTimeout: 200 * time.Millisecond,
		WaitForSelectorTimeout:      10 * time.Second,
		ShouldUseCompactResponses:   true,
		ElementResponseAttributes:   []string{"name", "text"},
		ScreenshotScale:             1,
	}
}

func (s Settings) clone() Settings {
	c := s
	c.ElementResponseAttributes = append([]string(nil), s.ElementResponseAttributes...)
	if s.Extra != nil {
		c.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Map returns the wire form. Durations are reported in milliseconds.
func (s Settings) Map() map[string]any {
	m := map[string]any{
		KeyWaitForIdleTimeout:          s.WaitForIdleTimeout.Milliseconds(),
		KeyActionAcknowledgmentTimeout: s.ActionAcknowledgmentTimeout.Milliseconds(),
		KeyScrollAcknowledgmentTimeout: s.ScrollAcknowledgmentTimeout.Milliseconds(),
		KeyWaitForSelectorTimeout:      s.WaitForSelectorTimeout.Milliseconds(),
		KeyShouldUseCompactResponses:   s.ShouldUseCompactResponses,
		KeyElementResponseAttributes:   strings.Join(s.ElementResponseAttributes, ","),
		KeyScreenshotScale:             s.ScreenshotScale,
	}
	for k, v := range s.Extra {
		m[k] = v
	}
	return m
}

// Apply validates every entry of update and applies them together; on
// error s is left unchanged.
func (s *Settings) Apply(update map[string]any) error {
	next := s.clone()
	keys := make([]string, 0, len(update))
	for k := range update {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := next.set(k, update[k]); err != nil {
			return err
		}
	}
	*s = next
	return nil
}

func (s *Settings) set(key string, v any) error {
	var err error
	switch key {
	case KeyWaitForIdleTimeout:
		s.WaitForIdleTimeout, err = millis(key, v)
	case KeyActionAcknowledgmentTimeout:
		s.ActionAcknowledgmentTimeout, err = millis(key, v)
	case KeyScrollAcknowledgmentTimeout:
		s.ScrollAcknowledgmentTimeout, err = millis(key, v)
	case KeyWaitForSelectorTimeout:
		s.WaitForSelectorTimeout, err = millis(key, v)
	case KeyShouldUseCompactResponses:
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidSetting, key, v)
		}
		s.ShouldUseCompactResponses = b
	case KeyElementResponseAttributes:
		s.ElementResponseAttributes, err = attributeList(key, v)
	case KeyScreenshotScale:
		f, ok := v.(float64)
		if !ok || f <= 0 || f > 1 {
			return fmt.Errorf("%w: %s must be a number in (0, 1], got %v", ErrInvalidSetting, key, v)
		}
		s.ScreenshotScale = f
	default:
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = v
	}
	return err
}

func millis(key string, v any) (time.Duration, error) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer of milliseconds, got %v", ErrInvalidSetting, key, v)
	}
	return time.Duration(f) * time.Millisecond, nil
}

// attributeList accepts "name,text" or ["name", "text"].
func attributeList(key string, v any) ([]string, error) {
	var parts []string
	switch t := v.(type) {
	case string:
		parts = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s entries must be strings", ErrInvalidSetting, key)
			}
			parts = append(parts, s)
		}
	default:
		return nil, fmt.Errorf("%w: %s must be a string or list, got %T", ErrInvalidSetting, key, v)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
