package model

import (
	"errors"
	"fmt"
)

// Strategy identifies how a locator value is resolved.
type Strategy int

const (
	ResourceID Strategy = iota
	AccessibilityID
	ClassName
	XPath
	SelectorExpression
)

// Wire-protocol strategy names.
const (
	StrategyNameID              = "id"
	StrategyNameAccessibilityID = "accessibility id"
	StrategyNameClassName       = "class name"
	StrategyNameXPath           = "xpath"
	StrategyNameUIAutomator     = "-android uiautomator"
)

var strategyNames = map[Strategy]string{
	ResourceID:         StrategyNameID,
	AccessibilityID:    StrategyNameAccessibilityID,
	ClassName:          StrategyNameClassName,
	XPath:              StrategyNameXPath,
	SelectorExpression: StrategyNameUIAutomator,
}

// ErrUnknownStrategy is returned for strategy names outside the wire protocol.
var ErrUnknownStrategy = errors.New("unknown locator strategy")

// String returns the wire-protocol name of the strategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy converts a wire-protocol strategy name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Locator pairs a strategy with its selector value. Locators are compared by value.
type Locator struct {
	Strategy Strategy
	Value    string
}

// NewLocator builds a locator from wire-protocol strategy name and selector.
func NewLocator(strategy, value string) (Locator, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return Locator{}, err
	}
	return Locator{Strategy: s, Value: value}, nil
}

func (l Locator) String() string {
	return fmt.Sprintf("By.%s: %s", l.Strategy, l.Value)
}
