package context

import (
	"testing"

	"github.com/abdul-hamid-achik/restflow/packages/core/fault"
	"github.com/abdul-hamid-achik/restflow/packages/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindVariables_Literals(t *testing.T) {
	ctx := New()

	err := ctx.BindVariables([]map[string]any{
		{"token": "debugtalk"},
		{"limit": 10},
	})

	require.NoError(t, err)
	assert.Equal(t, "debugtalk", ctx.Variables()["token"])
	assert.Equal(t, 10, ctx.Variables()["limit"])
}

func TestBindVariables_FunctionCall(t *testing.T) {
	ctx := New()
	require.NoError(t, ctx.ImportRequires([]string{"hash"}))

	err := ctx.BindVariables([]map[string]any{
		{"sig": map[string]any{"func": "md5", "args": []any{"x"}}},
	})

	require.NoError(t, err)
	assert.Equal(t, "9dd4e461268c8034f5c8564e155c67a6", ctx.Variables()["sig"])
}

func TestBindVariables_OrderMatters(t *testing.T) {
	ctx := New()
	require.NoError(t, ctx.ImportRequires([]string{"hash"}))

	// B references A, bound earlier in the same call
	err := ctx.BindVariables([]map[string]any{
		{"secret": "s3cret"},
		{"sig": map[string]any{"func": "md5", "args": []any{"${secret}"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "33e1b232a4e6fa0028a6670753749a17", ctx.Variables()["sig"])

	// reversed: the reference must fail
	reversed := New()
	require.NoError(t, reversed.ImportRequires([]string{"hash"}))
	err = reversed.BindVariables([]map[string]any{
		{"sig": map[string]any{"func": "md5", "args": []any{"${secret}"}}},
		{"secret": "s3cret"},
	})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.VariableBind))
}

func TestBindVariables_UnknownFunction(t *testing.T) {
	ctx := New()

	err := ctx.BindVariables([]map[string]any{
		{"v": map[string]any{"func": "nope", "args": []any{1}}},
	})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.VariableBind))
}

func TestBindVariables_PlainMappingIsLiteral(t *testing.T) {
	ctx := New()

	err := ctx.BindVariables([]map[string]any{
		{"payload": map[string]any{"name": "user", "age": 3}},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "user", "age": 3}, ctx.Variables()["payload"])
}

func TestBindFunctions(t *testing.T) {
	ctx := New()
	require.NoError(t, ctx.ImportRequires([]string{"random"}))

	err := ctx.BindFunctions(map[string]string{
		"gen_token": "random_string(16)",
	})
	require.NoError(t, err)

	err = ctx.BindVariables([]map[string]any{
		{"token": map[string]any{"func": "gen_token"}},
	})
	require.NoError(t, err)
	assert.Len(t, ctx.Variables()["token"], 16)
}

func TestBindFunctions_UnknownSource(t *testing.T) {
	ctx := New()

	err := ctx.BindFunctions(map[string]string{"f": "missing_builtin"})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.FunctionBind))
}

func TestImportRequires_UnknownModule(t *testing.T) {
	ctx := New()

	err := ctx.ImportRequires([]string{"no_such_module"})

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Import))
}

func TestImportRequires_Idempotent(t *testing.T) {
	ctx := New()

	require.NoError(t, ctx.ImportRequires([]string{"random", "random"}))
	require.NoError(t, ctx.ImportRequires([]string{"random"}))
}

func TestUpdateVariables_Overwrites(t *testing.T) {
	ctx := New()
	ctx.UpdateVariables(map[string]any{"token": "old"})
	ctx.UpdateVariables(map[string]any{"token": "new", "id": 7})

	assert.Equal(t, "new", ctx.Variables()["token"])
	assert.Equal(t, 7, ctx.Variables()["id"])
}

func TestApply_LaterScopeWins(t *testing.T) {
	ctx := New()

	require.NoError(t, ctx.Apply(model.Config{
		VariableBinds: []map[string]any{{"env": "suite"}, {"host": "example.com"}},
	}))
	require.NoError(t, ctx.Apply(model.Config{
		VariableBinds: []map[string]any{{"env": "case"}},
	}))

	assert.Equal(t, "case", ctx.Variables()["env"])
	assert.Equal(t, "example.com", ctx.Variables()["host"])
}
