package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Variables declared in the profiler check environment.
const (
	VarFile      = "file"
	VarName      = "name"
	VarRule      = "rule"
	VarVariables = "variables"
	VarConfig    = "config"
)

// ErrNotBool is returned for check expressions that do not produce a boolean.
var ErrNotBool = errors.New("expression does not evaluate to a boolean")

var (
	// celMutex serializes environment creation and compilation.
	celMutex sync.Mutex

	profilerEnv = sync.OnceValues(func() (*Environment, error) {
		return NewEnvironment(
			cel.Variable(VarFile, cel.StringType),
			cel.Variable(VarName, cel.StringType),
			cel.Variable(VarRule, cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable(VarVariables, cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable(VarConfig, cel.MapType(cel.StringType, cel.DynType)),
		)
	})
)

// Environment compiles expressions against a set of declarations plus the
// rbplint function library.
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates an [Environment] from the given declarations.
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	env, err := cel.NewEnv(append(opts, cel.Lib(&lib{}))...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: env}, nil
}

// ProfilerEnvironment returns the shared environment for checks that run
// once per profiler rule. See [Activation] for the declared variables.
func ProfilerEnvironment() (*Environment, error) {
	return profilerEnv()
}

// Compile compiles expression into a program.
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) Compile(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	return e.program(ast)
}

// CompileCheck compiles expression and rejects it when its type is known
// and is not bool. Expressions over dynamic values are checked at
// evaluation time by [EvalCheck].
//
//nolint:ireturn // Following CEL's function signature.
func (e *Environment) CompileCheck(expression string) (cel.Program, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile expression: %w: got %s", ErrNotBool, out)
	}

	return e.program(ast)
}

func (e *Environment) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	return ast, nil
}

//nolint:ireturn // Following CEL's function signature.
func (e *Environment) program(ast *cel.Ast) (cel.Program, error) {
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return program, nil
}

// Activation holds the values a profiler check is evaluated against.
type Activation struct {
	// Rule is the profiler rule definition, bound as `rule`.
	Rule map[string]any
	// Variables are the document's variables, bound as `variables`.
	Variables map[string]any
	// Config is the whole document, bound as `config`.
	Config map[string]any
	// File is the path of the document, bound as `file`.
	File string
	// Name is the name of the profiler rule, bound as `name`.
	Name string
}

// Vars returns the CEL input for a. Nil maps are bound as empty maps.
func (a Activation) Vars() map[string]any {
	return map[string]any{
		VarFile:      a.File,
		VarName:      a.Name,
		VarRule:      ConvertToCELValue(orEmpty(a.Rule)),
		VarVariables: ConvertToCELValue(orEmpty(a.Variables)),
		VarConfig:    ConvertToCELValue(orEmpty(a.Config)),
	}
}

// EvalCheck evaluates a check program compiled in [ProfilerEnvironment].
func EvalCheck(program cel.Program, a Activation) (bool, error) {
	result, _, err := program.Eval(a.Vars())
	if err != nil {
		return false, fmt.Errorf("evaluate: %w", err)
	}

	ok, isBool := result.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("%w: got %v", ErrNotBool, result.Value())
	}

	return ok, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}
