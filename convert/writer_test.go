package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
)

const engineBanner = "Parsing Sigma rules  [####################################]  100%"

func rawPlan(name string) *Plan {
	return &Plan{Job: config.Job{Name: name, Encoding: "utf-8"}}
}

func TestWriterStripsBanner(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, config.OutputModeRaw, zap.NewNop().Sugar())

	path, err := w.Write(rawPlan("strip"), Result{
		Output: engineBanner + "\n{job=\"syslog\"} |= \"root\"\n",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "strip.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{job=\"syslog\"} |= \"root\"\n", string(content))
}

func TestWriterSkipsEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, config.OutputModeRaw, zap.NewNop().Sugar())

	// Nothing but the banner left: skipped, no file, no error.
	path, err := w.Write(rawPlan("empty"), Result{Output: engineBanner + "\n"})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "empty.txt"))
}

func TestWriterOverwrites(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, config.OutputModeRaw, zap.NewNop().Sugar())

	_, err := w.Write(rawPlan("job"), Result{Output: "first"})
	require.NoError(t, err)
	path, err := w.Write(rawPlan("job"), Result{Output: "second"})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestWriterUnknownEncoding(t *testing.T) {
	w := NewWriter(t.TempDir(), config.OutputModeRaw, zap.NewNop().Sugar())
	plan := rawPlan("enc")
	plan.Job.Encoding = "no-such-encoding"

	_, err := w.Write(plan, Result{Output: "query"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestWriterStructuredRecords(t *testing.T) {
	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "aws_root.yml")
	require.NoError(t, os.WriteFile(ruleFile, []byte(awsRootRuleYAML), 0o644))

	w := NewWriter(dir, config.OutputModeJSON, zap.NewNop().Sugar())
	plan := &Plan{Job: config.Job{Name: "aws", Encoding: "utf-8", JSONIndent: 2}}

	path, err := w.Write(plan, Result{PerFile: []FileOutput{
		{File: ruleFile, Output: engineBanner + "\n{job=\"cloudtrail\"} | userIdentity_type=`Root`\n"},
	}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aws.json"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []Record
	require.NoError(t, json.Unmarshal(content, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "aws", records[0].ConversionName)
	assert.Equal(t, []string{"{job=\"cloudtrail\"} | userIdentity_type=`Root`"}, records[0].Queries)
	assert.Equal(t, ruleFile, records[0].InputFile)
	assert.Equal(t, path, records[0].OutputFile)
	require.Len(t, records[0].Rules, 1)
	assert.Equal(t, "AWS Root Credentials", records[0].Rules[0]["title"])
}

func TestWriterStructuredSkipsFilesWithoutQueries(t *testing.T) {
	dir := t.TempDir()
	ruleFile := filepath.Join(dir, "a.yml")
	require.NoError(t, os.WriteFile(ruleFile, []byte(awsRootRuleYAML), 0o644))

	w := NewWriter(dir, config.OutputModeJSON, zap.NewNop().Sugar())
	plan := &Plan{Job: config.Job{Name: "quiet"}}

	path, err := w.Write(plan, Result{PerFile: []FileOutput{
		{File: ruleFile, Output: engineBanner + "\n"},
	}})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.NoFileExists(t, filepath.Join(dir, "quiet.json"))
}

func TestSplitQueries(t *testing.T) {
	queries := SplitQueries("first query\n\nsecond query\n\n")
	assert.Equal(t, []string{"first query", "second query"}, queries)

	assert.Nil(t, SplitQueries("   \n\n  "))
}

func TestFilterDiagnostics(t *testing.T) {
	out := FilterDiagnostics(engineBanner + "\nquery one\n" + engineBanner + "\nquery two")
	assert.Equal(t, "query one\nquery two", out)
}
