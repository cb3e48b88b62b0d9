// Package tools implements the named, schema-validated capabilities the
// reasoning loop can invoke: flight search, hotel search, attraction and
// restaurant lookup, geocoding. Descriptors are registered once at startup;
// the registry is a read-only lookup table at call time.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Tool is a registered capability.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Schema      Schema  `json:"input_schema"`
	Handler     Handler `json:"-"`
}

// Descriptor is the immutable, caller-visible part of a Tool.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Schema      Schema `json:"input_schema"`
}

// Descriptor returns the tool's caller-visible descriptor.
func (t Tool) Descriptor() Descriptor {
	return Descriptor{Name: t.Name, Description: t.Description, Schema: t.Schema}
}

// Handler is the function signature for tool handlers.
type Handler func(ctx context.Context, args Args) (any, error)

// Schema maps field names to their validation rules.
type Schema map[string]SchemaField

// SchemaField describes one input field.
type SchemaField struct {
	Type        string   `json:"type"` // "string", "number", "integer", "boolean", "array", "object"
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// Args provides type-safe access to tool arguments.
type Args map[string]any

// String returns a string argument.
func (a Args) String(key string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer argument.
func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

// Float returns a float argument.
func (a Args) Float(key string) float64 {
	switch v := a[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0.0
}

// Bool returns a boolean argument.
func (a Args) Bool(key string) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return false
}

// Strings returns a string-array argument. JSON-decoded arrays arrive as
// []any, so both forms are accepted.
func (a Args) Strings(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ValidateArgs validates arguments against the schema.
func (s Schema) ValidateArgs(args Args) error {
	for fieldName, field := range s {
		val, exists := args[fieldName]

		if field.Required && !exists {
			return fmt.Errorf("missing required field: %s", fieldName)
		}
		if !exists {
			continue
		}
		if err := validateFieldType(fieldName, val, field); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldType(fieldName string, val any, field SchemaField) error {
	switch field.Type {
	case "string":
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("field %s: expected string, got %T", fieldName, val)
		}
		if len(field.Enum) > 0 {
			for _, allowed := range field.Enum {
				if allowed == str {
					return nil
				}
			}
			return fmt.Errorf("field %s: value %q not in allowed list", fieldName, str)
		}

	case "number", "integer":
		var numVal float64
		switch v := val.(type) {
		case float64:
			numVal = v
		case int:
			numVal = float64(v)
		case int64:
			numVal = float64(v)
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("field %s: expected number, got %q", fieldName, v.String())
			}
			numVal = f
		default:
			return fmt.Errorf("field %s: expected number, got %T", fieldName, val)
		}
		if field.Minimum != nil && numVal < *field.Minimum {
			return fmt.Errorf("field %s: value %v below minimum %v", fieldName, numVal, *field.Minimum)
		}
		if field.Maximum != nil && numVal > *field.Maximum {
			return fmt.Errorf("field %s: value %v above maximum %v", fieldName, numVal, *field.Maximum)
		}

	case "boolean":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("field %s: expected boolean, got %T", fieldName, val)
		}

	case "object":
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("field %s: expected object, got %T", fieldName, val)
		}

	case "array":
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("field %s: expected array, got %T", fieldName, val)
		}
	}

	return nil
}

// Error codes carried on invocation results.
const (
	ErrCodeToolNotFound     = "tool_not_found"
	ErrCodeInvalidToolInput = "invalid_tool_input"
	ErrCodeProviderTimeout  = "provider_timeout"
	ErrCodeProviderError    = "provider_error"
	ErrCodeRateLimited      = "rate_limited"
)

// InvokeError is a structured tool failure. It travels inside a Result
// instead of aborting the turn.
type InvokeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	return e.Code + ": " + e.Message
}

// Result is the tool-agnostic invocation envelope: the input echoed back,
// the output payload or error, and timing.
type Result struct {
	Name      string        `json:"name"`
	Input     Args          `json:"input"`
	Output    any           `json:"output,omitempty"`
	Err       *InvokeError  `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"-"`
}

// OK reports whether the invocation produced a usable output.
func (r *Result) OK() bool {
	return r.Err == nil
}
