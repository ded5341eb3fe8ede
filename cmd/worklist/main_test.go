package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"worklist/internal/config"
	"worklist/internal/testsupport"
	"worklist/internal/workitem"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	datasetDir string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		datasetDir: filepath.Join(base, "datasets"),
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("worklist %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func showWorkitem(t *testing.T, env *cliTestEnv, uid string) workitemView {
	t.Helper()
	out := mustRunCLI(t, env, "workitem", "show", uid, "--json")
	var view workitemView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show output %q: %v", out, err)
	}
	return view
}

func TestCLISchemaApplyAndStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "schema", "status")
	if !strings.Contains(out, "none") || !strings.Contains(out, "pending") {
		t.Fatalf("expected empty database status, got:\n%s", out)
	}

	out = mustRunCLI(t, env, "schema", "apply", "--version", "1")
	if !strings.Contains(out, "from version 0 to 1") {
		t.Fatalf("unexpected apply output: %s", out)
	}
	out = mustRunCLI(t, env, "schema", "status")
	if !strings.Contains(out, "v1") {
		t.Fatalf("expected v1 revision, got:\n%s", out)
	}

	mustRunCLI(t, env, "schema", "apply")
	out = mustRunCLI(t, env, "schema", "apply")
	if !strings.Contains(out, "already at version") {
		t.Fatalf("expected idempotent apply, got: %s", out)
	}
	out = mustRunCLI(t, env, "schema", "status")
	if !strings.Contains(out, "v2") || strings.Contains(out, "pending") {
		t.Fatalf("expected v2 revision with nothing pending, got:\n%s", out)
	}
}

func TestCLIWorkitemLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "schema", "apply")

	first := testsupport.WriteDatasetFile(t, env.datasetDir, "1.2.840.1")
	second := testsupport.WriteDatasetFile(t, env.datasetDir, "1.2.840.2")
	out := mustRunCLI(t, env, "workitem", "add", first, second)
	if !strings.Contains(out, "1.2.840.1") || !strings.Contains(out, "1.2.840.2") {
		t.Fatalf("expected both workitems in add output:\n%s", out)
	}

	view := showWorkitem(t, env, "1.2.840.1")
	if view.Status != "created" || view.ProcedureStepState != string(workitem.StateScheduled) {
		t.Fatalf("unexpected workitem after add: %+v", view)
	}
	initial := view.Watermark

	out = mustRunCLI(t, env, "workitem", "transition", "1.2.840.1", "in-progress")
	if !strings.Contains(out, "IN PROGRESS") {
		t.Fatalf("unexpected transition output: %s", out)
	}
	mustRunCLI(t, env, "workitem", "transition", "1.2.840.1", "completed")

	view = showWorkitem(t, env, "1.2.840.1")
	if view.ProcedureStepState != string(workitem.StateCompleted) {
		t.Fatalf("expected COMPLETED, got %+v", view)
	}
	if view.Watermark <= initial {
		t.Fatalf("watermark did not advance: %d -> %d", initial, view.Watermark)
	}

	out = mustRunCLI(t, env, "workitem", "show", "1.2.840.2")
	if !strings.Contains(out, "SCHEDULED") || !strings.Contains(out, "v2") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestCLIExitCodesFollowErrorKinds(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "schema", "apply")
	file := testsupport.WriteDatasetFile(t, env.datasetDir, "1.2.840.9")
	mustRunCLI(t, env, "workitem", "add", file)

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"duplicate add", []string{"workitem", "add", file}, 3},
		{"missing workitem", []string{"workitem", "show", "9.9.9"}, 4},
		{"missing transition", []string{"workitem", "transition", "9.9.9", "canceled"}, 4},
		{"illegal transition", []string{"workitem", "transition", "1.2.840.9", "completed"}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, tc.args, env.configPath)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := exitCode(err); got != tc.want {
				t.Fatalf("exit code %d for %v, want %d", got, err, tc.want)
			}
		})
	}
}

func TestCLIAddRejectsInvalidDataset(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "schema", "apply")

	path := filepath.Join(env.datasetDir, "bad.json")
	if err := os.MkdirAll(env.datasetDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	payload := strings.Replace(testsupport.ValidDatasetJSON("1.2.3"),
		`"00741200"`, `"00741000": {"vr": "CS", "Value": ["COMPLETED"]}, "00741200"`, 1)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}

	out, _, err := runCLI(t, []string{"workitem", "add", path}, env.configPath)
	if got := exitCode(err); got != 2 {
		t.Fatalf("exit code %d for %v, want 2", got, err)
	}
	if !strings.Contains(out, "error: validation") {
		t.Fatalf("expected validation row in output:\n%s", out)
	}
}

func TestCLIAddUIDFlagRequiresSingleFile(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"workitem", "add", "--uid", "1.2", "a.json", "b.json"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "single file") {
		t.Fatalf("expected --uid misuse error, got %v", err)
	}
}

func TestCLIOpenRefusesUnmigratedDatabase(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"workitem", "show", "1.2.3"}, env.configPath)
	if err == nil {
		t.Fatal("expected error against a database without schema")
	}
}

func TestCLIConfigInit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "worklist.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected target path in output: %s", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, target); err != nil {
		t.Fatalf("validate sample: %v", err)
	}
}

func TestCLINewUID(t *testing.T) {
	out, _, err := runCLI(t, []string{"workitem", "new-uid"}, "")
	if err != nil {
		t.Fatalf("new-uid: %v", err)
	}
	uid := strings.TrimSpace(out)
	if !strings.HasPrefix(uid, "2.25.") || !workitem.ValidUID(uid) {
		t.Fatalf("unexpected uid %q", uid)
	}
}
