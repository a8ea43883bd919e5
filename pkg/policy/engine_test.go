package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(logger)
	require.NoError(t, err)
	return eng
}

func TestNewEngineLoadsBuiltins(t *testing.T) {
	eng := newTestEngine(t)

	policies := eng.ListPolicies()
	require.NotEmpty(t, policies)

	expected := []string{"package-naming", "required-metadata"}
	for _, name := range expected {
		_, err := eng.GetPolicy(name)
		assert.NoError(t, err, "expected built-in policy %s", name)
	}
}

func TestEvaluateNamingPolicy(t *testing.T) {
	eng := newTestEngine(t)

	cases := []struct {
		name    string
		pkgName string
		allowed bool
	}{
		{"valid lowercase name", "web-server", true},
		{"uppercase rejected", "Web-Server", false},
		{"leading hyphen rejected", "-web-server", false},
		{"too short rejected", "a", false},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			pkg := &xpkg.Package{
				Id:       xpkg.NewId(tt.pkgName, nil),
				Metadata: map[string]any{"license": "MIT", "description": "test package"},
			}

			result, err := eng.Evaluate(context.Background(), pkg)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, result.Allowed, "violations: %+v", result.Violations)
		})
	}
}

func TestEvaluateRequiredMetadataPolicy(t *testing.T) {
	eng := newTestEngine(t)

	pkg := &xpkg.Package{
		Id:       xpkg.NewId("web-server", nil),
		Metadata: map[string]any{},
	}

	result, err := eng.Evaluate(context.Background(), pkg)
	require.NoError(t, err)

	// Missing metadata is a warning, not a blocking violation.
	assert.True(t, result.Allowed)
	assert.NotEmpty(t, result.Violations)

	var messages []string
	for _, v := range result.Violations {
		messages = append(messages, v.Message)
		assert.Equal(t, SeverityWarning, v.Severity)
	}
	assert.Contains(t, messages[0]+messages[len(messages)-1], "license")
}

func TestEvaluateRecordsPolicyNames(t *testing.T) {
	eng := newTestEngine(t)

	pkg := &xpkg.Package{
		Id:       xpkg.NewId("web-server", nil),
		Metadata: map[string]any{"license": "MIT", "description": "d"},
	}

	result, err := eng.Evaluate(context.Background(), pkg)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"package-naming", "required-metadata"}, result.EvaluatedPolicies)
}

func TestEnableDisablePolicy(t *testing.T) {
	eng := newTestEngine(t)

	require.NoError(t, eng.DisablePolicy("package-naming"))

	pkg := &xpkg.Package{Id: xpkg.NewId("INVALID_NAME", nil), Metadata: map[string]any{"license": "x", "description": "x"}}
	result, err := eng.Evaluate(context.Background(), pkg)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "disabled policy must not produce violations")

	require.NoError(t, eng.EnablePolicy("package-naming"))
	result, err = eng.Evaluate(context.Background(), pkg)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestGetPolicyUnknown(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.GetPolicy("does-not-exist")
	assert.Error(t, err)
}
