package cel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled programs kept in memory.
const DefaultCacheSize = 256

// ErrNotBoolean is returned when a guard expression does not yield a bool.
var ErrNotBoolean = errors.New("expression did not return a boolean")

// MissingKeyError reports that an expression read a key absent from its input.
type MissingKeyError struct {
	Key string
	Err error
}

// Error implements the error interface
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("field %s absent", e.Key)
}

// Unwrap returns the underlying evaluation error
func (e *MissingKeyError) Unwrap() error {
	return e.Err
}

// Evaluator evaluates CEL expressions
type Evaluator struct {
	env   *cel.Env
	cache *lru.Cache[string, cel.Program]
}

// NewEvaluator creates a new CEL evaluator with a bounded program cache.
func NewEvaluator(cacheSize int) (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}

	return &Evaluator{
		env:   env,
		cache: cache,
	}, nil
}

// Evaluate evaluates a CEL expression with the given variables
func (e *Evaluator) Evaluate(expression string, vars map[string]interface{}) (interface{}, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		if key, ok := missingKey(err); ok {
			return nil, &MissingKeyError{Key: key, Err: err}
		}
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	return out.Value(), nil
}

// EvaluateBool evaluates a guard expression that must return a boolean.
func (e *Evaluator) EvaluateBool(expression string, vars map[string]interface{}) (bool, error) {
	result, err := e.Evaluate(expression, vars)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %T", ErrNotBoolean, result)
	}
	return b, nil
}

// getProgram gets a compiled program from cache or compiles it
func (e *Evaluator) getProgram(expression string) (cel.Program, error) {
	if program, ok := e.cache.Get(expression); ok {
		return program, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("parse error: %w", issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program generation error: %w", err)
	}

	// Concurrent compiles of the same expression are harmless; last Add wins.
	e.cache.Add(expression, program)

	return program, nil
}

// ValidateExpression compiles an expression without evaluating it and checks
// that it can yield a boolean.
func (e *Evaluator) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return issues.Err()
	}

	switch out := ast.OutputType().String(); out {
	case "bool", "dyn":
	default:
		return fmt.Errorf("%w: output type %s", ErrNotBoolean, out)
	}

	return nil
}

// CacheLen returns the number of cached programs.
func (e *Evaluator) CacheLen() int {
	return e.cache.Len()
}

// ClearCache clears the compiled program cache
func (e *Evaluator) ClearCache() {
	e.cache.Purge()
}

func missingKey(err error) (string, bool) {
	const prefix = "no such key: "
	msg := err.Error()
	i := strings.Index(msg, prefix)
	if i < 0 {
		return "", false
	}
	key := strings.TrimSpace(msg[i+len(prefix):])
	if j := strings.IndexAny(key, " \n"); j >= 0 {
		key = key[:j]
	}
	return key, true
}
