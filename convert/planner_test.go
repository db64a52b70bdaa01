package convert

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
)

func testJob(input ...string) config.Job {
	return config.Job{
		Name:          "test",
		Input:         input,
		Target:        "loki",
		Format:        "default",
		FilePattern:   "*.yml",
		PipelineCheck: true,
	}
}

func writeRule(t *testing.T, root string, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("title: Test\n"), 0o644))
	return path
}

func TestPlanExpandsGlobs(t *testing.T) {
	root := t.TempDir()
	a := writeRule(t, root, "rules", "a.yml")
	b := writeRule(t, root, "rules", "nested", "b.yml")
	writeRule(t, root, "rules", "ignored.json")

	p := NewPlanner(root, zap.NewNop().Sugar())
	plan, err := p.Plan(testJob("rules/**"))
	require.NoError(t, err)

	assert.Equal(t, []string{a, b}, plan.Files)
	assert.Equal(t, plan.Files, plan.Invocation.Files)
	assert.Equal(t, "loki", plan.Invocation.Target)
}

func TestPlanDeduplicatesOverlappingPatterns(t *testing.T) {
	root := t.TempDir()
	a := writeRule(t, root, "rules", "a.yml")

	p := NewPlanner(root, zap.NewNop().Sugar())
	plan, err := p.Plan(testJob("rules/*.yml", "rules/**"))
	require.NoError(t, err)
	assert.Equal(t, []string{a}, plan.Files)
}

func TestPlanMissingName(t *testing.T) {
	p := NewPlanner(t.TempDir(), zap.NewNop().Sugar())
	job := testJob("rules/*.yml")
	job.Name = ""

	_, err := p.Plan(job)
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "unique identifier")
}

func TestPlanAbsoluteInputPattern(t *testing.T) {
	p := NewPlanner(t.TempDir(), zap.NewNop().Sugar())

	_, err := p.Plan(testJob("/abs/rules/*.yml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "must be relative to the project root")
}

func TestPlanEmptyFileSet(t *testing.T) {
	root := t.TempDir()
	writeRule(t, root, "rules", "a.json")

	p := NewPlanner(root, zap.NewNop().Sugar())
	_, err := p.Plan(testJob("rules/*"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "no files matched the patterns after applying file-pattern: *.yml")
}

func TestPlanUnknownEncoding(t *testing.T) {
	root := t.TempDir()
	writeRule(t, root, "rules", "a.yml")

	job := testJob("rules/*.yml")
	job.Encoding = "no-such-encoding"

	p := NewPlanner(root, zap.NewNop().Sugar())
	_, err := p.Plan(job)
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), `unknown output encoding "no-such-encoding"`)
}

func TestPlanAcceptsKnownEncodings(t *testing.T) {
	root := t.TempDir()
	writeRule(t, root, "rules", "a.yml")
	p := NewPlanner(root, zap.NewNop().Sugar())

	for _, enc := range []string{"", "utf-8", "UTF-8", "iso-8859-1", "windows-1252"} {
		job := testJob("rules/*.yml")
		job.Encoding = enc
		_, err := p.Plan(job)
		assert.NoError(t, err, enc)
	}
}

func TestPlanPipelineClassification(t *testing.T) {
	root := t.TempDir()
	writeRule(t, root, "rules", "a.yml")
	writeRule(t, root, "my_pipeline.yml")

	job := testJob("rules/*.yml")
	job.Pipelines = []string{"my_pipeline.yml", "sysmon"}

	p := NewPlanner(root, zap.NewNop().Sugar())
	plan, err := p.Plan(job)
	require.NoError(t, err)
	require.Len(t, plan.Pipelines, 2)

	assert.Equal(t, ReferencePath, plan.Pipelines[0].Kind)
	assert.Equal(t, filepath.Join(root, "my_pipeline.yml"), plan.Pipelines[0].Value)
	assert.Equal(t, ReferenceNamed, plan.Pipelines[1].Kind)
	assert.Equal(t, "sysmon", plan.Pipelines[1].Value)
	assert.Equal(t, []string{plan.Pipelines[0].Value, "sysmon"}, plan.Invocation.Pipelines)
}

func TestPlanAbsolutePipelinePath(t *testing.T) {
	root := t.TempDir()
	writeRule(t, root, "rules", "a.yml")

	job := testJob("rules/*.yml")
	job.Pipelines = []string{"/abs/pipeline.yml"}

	p := NewPlanner(root, zap.NewNop().Sugar())
	_, err := p.Plan(job)
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "pipeline file path must be relative to the project root")
}

func TestPlanRestrict(t *testing.T) {
	root := t.TempDir()
	a := writeRule(t, root, "rules", "a.yml")
	writeRule(t, root, "rules", "b.yml")

	p := NewPlanner(root, zap.NewNop().Sugar())
	plan, err := p.Plan(testJob("rules/*.yml"))
	require.NoError(t, err)
	require.Len(t, plan.Files, 2)

	plan.Restrict([]string{a})
	assert.Equal(t, []string{a}, plan.Files)
	assert.Equal(t, []string{a}, plan.Invocation.Files)

	plan.Restrict(nil)
	assert.Empty(t, plan.Files)
}
