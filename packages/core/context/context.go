// Package context owns the variable and function bindings for one run.
// A Context is monotonic: scope applications add or overwrite entries,
// never reset them; isolation comes from starting a new Context.
package context

import (
	"github.com/abdul-hamid-achik/restflow/packages/builtin"
	"github.com/abdul-hamid-achik/restflow/packages/core/fault"
	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/abdul-hamid-achik/restflow/packages/core/template"
)

// Context holds the named variables and callables visible to the scope
// currently executing. It is owned by exactly one Runner and must not be
// shared across concurrent runs.
type Context struct {
	variables map[string]any
	funcs     *builtin.Registry
	requires  map[string]bool
}

func New() *Context {
	return &Context{
		variables: make(map[string]any),
		funcs:     builtin.NewRegistry(),
		requires:  make(map[string]bool),
	}
}

// Variables returns the live variable table. The template resolver reads
// it; callers must not retain it across scope applications.
func (c *Context) Variables() map[string]any {
	return c.variables
}

// Registry returns the function registry, for explicit registration of
// caller-supplied functions.
func (c *Context) Registry() *builtin.Registry {
	return c.funcs
}

// ImportRequires loads each named feature module into the function
// registry. Importing an already-imported module is a no-op.
func (c *Context) ImportRequires(names []string) error {
	for _, name := range names {
		if c.requires[name] {
			continue
		}
		if err := c.funcs.Import(name); err != nil {
			return fault.Wrap(fault.Import, err, "importing %q", name)
		}
		c.requires[name] = true
	}
	return nil
}

// BindFunctions evaluates each name→expression entry into a callable and
// stores it under the new name, overwriting any prior binding.
func (c *Context) BindFunctions(binds map[string]string) error {
	for name, expr := range binds {
		fn, err := c.funcs.Bind(expr)
		if err != nil {
			return fault.Wrap(fault.FunctionBind, err, "binding %q", name)
		}
		c.funcs.Register(name, fn)
	}
	return nil
}

// BindVariables resolves the ordered sequence of single-key specs. A
// variable bound earlier in the call is visible to later specs, so a
// spec's function arguments may reference fresh bindings.
func (c *Context) BindVariables(binds []map[string]any) error {
	for _, bind := range binds {
		for name, spec := range bind {
			value, err := c.resolveSpec(name, spec)
			if err != nil {
				return err
			}
			c.variables[name] = value
		}
	}
	return nil
}

func (c *Context) resolveSpec(name string, spec any) (any, error) {
	call, ok := spec.(map[string]any)
	if !ok {
		return spec, nil
	}
	funcName, ok := call["func"].(string)
	if !ok {
		// a plain mapping value, not a function call spec
		return spec, nil
	}

	var args []any
	if rawArgs, ok := call["args"].([]any); ok {
		resolved, err := template.Resolve(rawArgs, c.variables)
		if err != nil {
			return nil, fault.Wrap(fault.VariableBind, err, "binding %q", name)
		}
		args = resolved.([]any)
	}

	value, err := c.funcs.Call(funcName, args...)
	if err != nil {
		return nil, fault.Wrap(fault.VariableBind, err, "binding %q via %q", name, funcName)
	}
	return value, nil
}

// UpdateVariables bulk-overwrites variables, absorbing values extracted
// from a response.
func (c *Context) UpdateVariables(vars map[string]any) {
	for name, value := range vars {
		c.variables[name] = value
	}
}

// Apply applies one scope's binding configuration: requires, then
// function binds, then variable binds. Request defaults are not handled
// here; the runner snapshots them for testset-level scopes.
func (c *Context) Apply(cfg model.Config) error {
	if err := c.ImportRequires(cfg.Requires); err != nil {
		return err
	}
	if err := c.BindFunctions(cfg.FunctionBinds); err != nil {
		return err
	}
	return c.BindVariables(cfg.VariableBinds)
}
