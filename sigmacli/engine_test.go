package sigmacli

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInvocationArgs(t *testing.T) {
	inv := Invocation{
		Target:            "loki",
		Pipelines:         []string{"sysmon", "/ws/pipelines/custom.yml"},
		Format:            "default",
		CorrelationMethod: "temporal",
		Filters:           []string{"filters/deprecated"},
		FilePattern:       "*.yml",
		Encoding:          "utf-8",
		JSONIndent:        2,
		BackendOptions:    map[string]string{"case_sensitive": "true", "add_line_filter": "false"},
		SkipUnsupported:   true,
		Files:             []string{"/ws/rules/a.yml", "/ws/rules/b.yml"},
	}

	assert.Equal(t, []string{
		"--target", "loki",
		"--pipeline=sysmon",
		"--pipeline=/ws/pipelines/custom.yml",
		"--format", "default",
		"--correlation-method", "temporal",
		"--filter=filters/deprecated",
		"--file-pattern", "*.yml",
		"--output", "-",
		"--encoding", "utf-8",
		"--json-indent", "2",
		"--backend-option=add_line_filter=false",
		"--backend-option=case_sensitive=true",
		"--skip-unsupported",
		"/ws/rules/a.yml",
		"/ws/rules/b.yml",
	}, inv.Args())
}

func TestInvocationArgsMinimal(t *testing.T) {
	inv := Invocation{
		Target:      "loki",
		Format:      "default",
		FilePattern: "*.yml",
		Encoding:    "utf-8",
	}

	args := inv.Args()
	assert.NotContains(t, args, "--correlation-method")
	assert.NotContains(t, args, "--without-pipeline")
	assert.NotContains(t, args, "--disable-pipeline-check")
	// fail-unsupported is the explicit opposite of skip-unsupported
	assert.Contains(t, args, "--fail-unsupported")
	assert.NotContains(t, args, "--skip-unsupported")
}

func TestInvocationArgsFlagPairs(t *testing.T) {
	inv := Invocation{
		Target:               "loki",
		Format:               "default",
		FilePattern:          "*.yml",
		Encoding:             "utf-8",
		WithoutPipelines:     true,
		DisablePipelineCheck: true,
		SkipUnsupported:      true,
	}

	args := inv.Args()
	assert.Contains(t, args, "--without-pipeline")
	assert.Contains(t, args, "--disable-pipeline-check")
	assert.Contains(t, args, "--skip-unsupported")
}

func TestNewCLIEngine(t *testing.T) {
	engine, err := NewCLIEngine(`python -m sigma.cli convert`, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, []string{"python", "-m", "sigma.cli", "convert"}, engine.command)
}

func TestNewCLIEngineRejectsBadQuoting(t *testing.T) {
	_, err := NewCLIEngine(`sigma "convert`, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestNewCLIEngineRejectsEmpty(t *testing.T) {
	_, err := NewCLIEngine("", zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestCLIEngineCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tools")
	}

	engine, err := NewCLIEngine("echo", zap.NewNop().Sugar())
	require.NoError(t, err)

	result := engine.Convert(context.Background(), Invocation{
		Target:      "loki",
		Format:      "default",
		FilePattern: "*.yml",
		Encoding:    "utf-8",
	})
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitStatus)
	assert.Contains(t, result.Output, "--target loki")
}

func TestCLIEngineReportsExitStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tools")
	}

	engine, err := NewCLIEngine("false", zap.NewNop().Sugar())
	require.NoError(t, err)

	result := engine.Convert(context.Background(), Invocation{Target: "loki"})
	require.Error(t, result.Err)
	assert.Equal(t, 1, result.ExitStatus)
}

func TestCLIEngineHonorsTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix shell tools")
	}

	// sh -c makes the appended engine args harmless positional params.
	engine, err := NewCLIEngine(`sh -c "sleep 10"`, zap.NewNop().Sugar())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := engine.Convert(ctx, Invocation{Target: "loki"})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "cancelled")
}

func TestCLIEngineMissingBinary(t *testing.T) {
	engine, err := NewCLIEngine("definitely-not-a-real-binary-94c1", zap.NewNop().Sugar())
	require.NoError(t, err)

	result := engine.Convert(context.Background(), Invocation{Target: "loki"})
	require.Error(t, result.Err)
	assert.Equal(t, -1, result.ExitStatus)
}
