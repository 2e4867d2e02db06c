package builder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/somombo/impalab/command"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeComponent(t *testing.T, dir, name, descriptor string) {
	t.Helper()

	compDir := filepath.Join(dir, name)
	if err := os.MkdirAll(compDir, 0o755); err != nil {
		t.Fatalf("create component dir: %v", err)
	}

	path := filepath.Join(compDir, DescriptorFile)
	if err := os.WriteFile(path, []byte(descriptor), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
}

func TestBuildEmptyDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "manifest.json")

	err := Build(context.Background(), testLogger(), dir, out)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}

	for _, key := range []string{"generators", "algorithm_executables"} {
		if string(raw[key]) != "{}" {
			t.Errorf("%s = %s, want {}", key, raw[key])
		}
	}
}

func TestBuildMissingComponentsDir(t *testing.T) {
	dir := t.TempDir()

	err := Build(
		context.Background(), testLogger(),
		filepath.Join(dir, "no-such-dir"),
		filepath.Join(dir, "manifest.json"),
	)
	if err == nil {
		t.Fatal("expected error for missing components dir")
	}
}

func TestBuildRegistersComponents(t *testing.T) {
	dir := t.TempDir()

	writeComponent(t, dir, "gen", `
name = "csv-gen"
type = "generator"

[run]
command = "python3"
args = ["gen.py"]
`)

	writeComponent(t, dir, "algo", `
name = "py-sorter"
type = "algorithm"
language = "python"

[run]
command = "python3"
args = ["algo.py"]
`)

	// The scripts exist, so their args should be absolutized.
	for _, p := range []string{"gen/gen.py", "algo/algo.py"} {
		script := filepath.Join(dir, p)
		if err := os.WriteFile(script, []byte("pass\n"), 0o644); err != nil {
			t.Fatalf("write script: %v", err)
		}
	}

	out := filepath.Join(dir, "manifest.json")
	if err := Build(context.Background(), testLogger(), dir, out); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	m, err := Load(out)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	gen, ok := m.Generators["csv-gen"]
	if !ok {
		t.Fatalf("generator csv-gen not registered: %+v", m)
	}
	if gen.Command != "python3" {
		t.Errorf("generator command = %q, want python3", gen.Command)
	}
	if len(gen.Args) != 1 || !filepath.IsAbs(gen.Args[0]) {
		t.Errorf("generator args = %v, want one absolute path", gen.Args)
	}

	algo, ok := m.AlgorithmExecutables["python"]
	if !ok {
		t.Fatalf("algorithm for python not registered: %+v", m)
	}
	if !strings.HasSuffix(algo.Args[0], "algo.py") {
		t.Errorf("algorithm args = %v, want .../algo.py", algo.Args)
	}
}

func TestBuildRunsBuildStep(t *testing.T) {
	dir := t.TempDir()

	// The build step produces the binary the run command names.
	writeComponent(t, dir, "native", `
name = "native-sorter"
type = "algorithm"
language = "c"

[build]
command = "touch"
args = ["sorter"]

[run]
command = "sorter"
`)

	out := filepath.Join(dir, "manifest.json")
	if err := Build(context.Background(), testLogger(), dir, out); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	m, err := Load(out)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	algo := m.AlgorithmExecutables["c"]
	if !filepath.IsAbs(algo.Command) {
		t.Errorf("built command = %q, want absolute path", algo.Command)
	}
	if !strings.HasSuffix(algo.Command, "sorter") {
		t.Errorf("built command = %q, want .../sorter", algo.Command)
	}
}

func TestBuildStepFailure(t *testing.T) {
	dir := t.TempDir()

	writeComponent(t, dir, "broken", `
name = "broken"
type = "algorithm"
language = "c"

[build]
command = "false"

[run]
command = "sorter"
`)

	err := Build(
		context.Background(), testLogger(),
		dir, filepath.Join(dir, "manifest.json"),
	)
	if err == nil {
		t.Fatal("expected error for failing build step")
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error %q does not name the component", err)
	}
}

func TestBuildSkipsAlgorithmWithoutLanguage(t *testing.T) {
	dir := t.TempDir()

	writeComponent(t, dir, "anon", `
name = "anon-sorter"
type = "algorithm"

[run]
command = "sorter"
`)

	out := filepath.Join(dir, "manifest.json")
	if err := Build(context.Background(), testLogger(), dir, out); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	m, err := Load(out)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.AlgorithmExecutables) != 0 {
		t.Errorf("expected no algorithms, got %+v", m.AlgorithmExecutables)
	}
}

func TestBuildUnknownType(t *testing.T) {
	dir := t.TempDir()

	writeComponent(t, dir, "odd", `
name = "odd"
type = "visualizer"

[run]
command = "viz"
`)

	err := Build(
		context.Background(), testLogger(),
		dir, filepath.Join(dir, "manifest.json"),
	)
	if err == nil || !strings.Contains(err.Error(), "visualizer") {
		t.Fatalf("expected unknown-type error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing manifest should not error: %v", err)
	}
	if m != nil {
		t.Errorf("missing manifest should be nil, got %+v", m)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse manifest") {
		t.Errorf("error = %q, want a parse-manifest error", err)
	}
}

func TestManifestOmitsEmptyArgs(t *testing.T) {
	m := NewManifest()
	m.Generators["g"] = command.Spec{Command: "gen"}

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if strings.Contains(string(data), `"args"`) {
		t.Errorf("empty args should be omitted, got: %s", data)
	}
}
