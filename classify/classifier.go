package classify

import (
	"errors"
	"strings"
	"sync"

	"github.com/ryswick/floodgate/types"
)

var (
	// ErrEmptyPattern indicates an empty URI pattern.
	ErrEmptyPattern = errors.New("classify: uri pattern must not be empty")

	// ErrNilClassifierFunc indicates a nil custom classifier function.
	ErrNilClassifierFunc = errors.New("classify: classifier func must not be nil")

	// ErrOverrideNotFound indicates a remove of a pattern with no override.
	ErrOverrideNotFound = errors.New("classify: no override registered for pattern")
)

// Func is a custom classification hook. It returns the result for a matched
// request and true, or false to pass the request on to the next rule.
type Func func(uri, method string) (Result, bool)

type customRule struct {
	pattern string
	fn      Func
}

type override struct {
	pattern  string
	priority types.PriorityLevel
}

// Classifier wraps the built-in rules with per-URI priority overrides and
// registered custom classification hooks. Evaluation order: custom hooks in
// registration order, then overrides in registration order, then the built-in
// rules. A zero-value Classifier behaves exactly like Classify.
type Classifier struct {
	mu        sync.RWMutex
	custom    []customRule
	overrides []override
}

// NewClassifier returns an empty Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// RegisterCustom registers a custom classification hook for URIs containing
// pattern. Hooks run before overrides and built-in rules.
func (c *Classifier) RegisterCustom(pattern string, fn Func) error {
	if pattern == "" {
		return ErrEmptyPattern
	}
	if fn == nil {
		return ErrNilClassifierFunc
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.custom = append(c.custom, customRule{pattern: pattern, fn: fn})
	return nil
}

// SetOverride forces the given priority for URIs containing pattern. Setting
// an existing pattern replaces its priority.
func (c *Classifier) SetOverride(pattern string, priority types.PriorityLevel) error {
	if pattern == "" {
		return ErrEmptyPattern
	}
	if !priority.IsValid() {
		return errors.New("classify: invalid priority for override")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.overrides {
		if c.overrides[i].pattern == pattern {
			c.overrides[i].priority = priority
			return nil
		}
	}
	c.overrides = append(c.overrides, override{pattern: pattern, priority: priority})
	return nil
}

// RemoveOverride removes a previously set priority override.
func (c *Classifier) RemoveOverride(pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.overrides {
		if c.overrides[i].pattern == pattern {
			c.overrides = append(c.overrides[:i], c.overrides[i+1:]...)
			return nil
		}
	}
	return ErrOverrideNotFound
}

// Classify evaluates custom hooks, then overrides, then the built-in rules.
// An override replaces the priority and reason of the built-in result but
// keeps its estimate and flags, so an overridden emergency URI still carries
// its emergency marker.
func (c *Classifier) Classify(uri, method string) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, rule := range c.custom {
		if !strings.Contains(uri, rule.pattern) {
			continue
		}
		if r, ok := rule.fn(uri, method); ok {
			if r.Reason == "" {
				r.Reason = ReasonCustomClassifier
			}
			return r
		}
	}

	result := Classify(uri, method)
	for _, ov := range c.overrides {
		if strings.Contains(uri, ov.pattern) {
			result.Priority = ov.priority
			result.Reason = ReasonURIOverride
			break
		}
	}
	return result
}
