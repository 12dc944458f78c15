// Package filterexpr compiles CEL boolean expressions over a fixed set of
// typed variables, such as the attributes of a listed source file.
package filterexpr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// ValueKind describes the kind of value a variable holds.
type ValueKind string

const (
	KindString    ValueKind = "string"
	KindNumber    ValueKind = "number"
	KindBool      ValueKind = "bool"
	KindTimestamp ValueKind = "timestamp"
)

// Schema whitelists the variables an expression may reference.
type Schema map[string]ValueKind

// Predicate is a compiled filter. It is safe for concurrent use.
type Predicate struct {
	source  string
	schema  Schema
	program cel.Program
}

// Compile parses and type-checks expr against schema. An empty expression
// yields a nil predicate, which matches everything.
func Compile(expr string, schema Schema) (*Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	if len(schema) == 0 {
		return nil, errors.New("filter schema has no fields defined")
	}

	env, err := buildEnv(schema)
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid filter: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}
	return &Predicate{source: expr, schema: schema, program: program}, nil
}

// String returns the expression text.
func (p *Predicate) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Match evaluates the predicate. Every schema variable must be supplied;
// integer values are accepted for number variables.
func (p *Predicate) Match(vars map[string]any) (bool, error) {
	if p == nil {
		return true, nil
	}

	activation := make(map[string]any, len(p.schema))
	for name, kind := range p.schema {
		raw, ok := vars[name]
		if !ok {
			return false, fmt.Errorf("variable %q is missing", name)
		}
		value, err := coerce(kind, raw)
		if err != nil {
			return false, fmt.Errorf("variable %q: %w", name, err)
		}
		activation[name] = value
	}

	out, _, err := p.program.Eval(activation)
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter produced %T, want bool", out.Value())
	}
	return matched, nil
}

func buildEnv(schema Schema) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(schema)+1)
	for name, kind := range schema {
		celType, err := celTypeForKind(kind)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		opts = append(opts, cel.Variable(name, celType))
	}
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	return cel.NewEnv(opts...)
}

func celTypeForKind(kind ValueKind) (*cel.Type, error) {
	switch kind {
	case KindString:
		return cel.StringType, nil
	case KindNumber:
		return cel.DoubleType, nil
	case KindBool:
		return cel.BoolType, nil
	case KindTimestamp:
		return cel.TimestampType, nil
	default:
		return nil, fmt.Errorf("unsupported field kind %s", kind)
	}
}

func coerce(kind ValueKind, value any) (any, error) {
	switch kind {
	case KindString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case KindNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case KindBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case KindTimestamp:
		if t, ok := value.(time.Time); ok {
			return t, nil
		}
	default:
		return nil, fmt.Errorf("unsupported field kind %s", kind)
	}
	return nil, fmt.Errorf("expected %s value, got %T", kind, value)
}
