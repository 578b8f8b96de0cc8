package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/byteness/detective-graph-config/config"
	"github.com/byteness/detective-graph-config/infrastructure"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("config.Parse() error = %v", err)
	}
	return cfg
}

const minimalConfig = `
region: us-east-1
admin_account_id: "222222222222"
`

func TestBuildStack_Default(t *testing.T) {
	stack, err := BuildStack(testConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("BuildStack() error = %v", err)
	}
	tmpl := stack.Synthesize()

	counts := map[string]int{
		infrastructure.ResourceTypeKMSKey:      1,
		infrastructure.ResourceTypeRole:        1,
		infrastructure.ResourceTypeFunction:    1,
		infrastructure.ResourceTypeLogGroup:    1,
		infrastructure.ResourceTypeUpdateGraph: 1,
	}
	for typ, want := range counts {
		if got := tmpl.ResourceCount(typ); got != want {
			t.Errorf("ResourceCount(%s) = %d, want %d", typ, got, want)
		}
	}

	r, ok := stack.Resource("DetectiveGraphConfig248C4B9F")
	if !ok {
		t.Fatalf("custom resource missing; ids: %v", stack.LogicalIDs())
	}
	if r.Properties["adminAccountId"] != "222222222222" {
		t.Errorf("adminAccountId = %v", r.Properties["adminAccountId"])
	}
}

func TestBuildStack_MultipleGraphsShareProvider(t *testing.T) {
	stack, err := BuildStack(testConfig(t, `
region: us-east-1
stack:
  graphs:
    - id: Primary
      admin_account_id: "222222222222"
    - id: Secondary
`))
	if err != nil {
		t.Fatalf("BuildStack() error = %v", err)
	}
	tmpl := stack.Synthesize()
	if got := tmpl.ResourceCount(infrastructure.ResourceTypeUpdateGraph); got != 2 {
		t.Errorf("custom resources = %d, want 2", got)
	}
	if got := tmpl.ResourceCount(infrastructure.ResourceTypeFunction); got != 1 {
		t.Errorf("functions = %d, want 1", got)
	}
	if got := tmpl.ResourceCount(infrastructure.ResourceTypeLogGroup); got != 1 {
		t.Errorf("log groups = %d, want 1", got)
	}

	var dependsOn []string
	for id, r := range tmpl.Resources {
		if r.Type != infrastructure.ResourceTypeUpdateGraph {
			continue
		}
		if len(r.DependsOn) != 1 {
			t.Fatalf("%s DependsOn = %v", id, r.DependsOn)
		}
		dependsOn = append(dependsOn, r.DependsOn[0])
	}
	if len(dependsOn) != 2 || dependsOn[0] != dependsOn[1] {
		t.Errorf("custom resources should depend on the same log group, got %v", dependsOn)
	}
}

func TestBuildStack_Tracing(t *testing.T) {
	stack, err := BuildStack(testConfig(t, minimalConfig+"stack:\n  tracing: true\n"))
	if err != nil {
		t.Fatalf("BuildStack() error = %v", err)
	}
	fn, ok := stack.Resource("CustomDetectiveUpdateGraphCustomResourceProviderHandlerD4473EC1")
	if !ok {
		t.Fatalf("handler missing; ids: %v", stack.LogicalIDs())
	}
	if _, ok := fn.Properties["TracingConfig"]; !ok {
		t.Error("TracingConfig should be set when tracing is on")
	}
}

func TestSynthCommand_JSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := SynthCommand(testConfig(t, minimalConfig), SynthCommandInput{Format: "json", Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("SynthCommand() error = %v (stderr: %s)", err, stderr.String())
	}

	var tmpl infrastructure.Template
	if err := json.Unmarshal(stdout.Bytes(), &tmpl); err != nil {
		t.Fatalf("output is not a template: %v", err)
	}
	if tmpl.AWSTemplateFormatVersion != infrastructure.TemplateFormatVersion {
		t.Errorf("AWSTemplateFormatVersion = %q", tmpl.AWSTemplateFormatVersion)
	}
	if len(tmpl.Resources) != 5 {
		t.Errorf("resources = %d, want 5", len(tmpl.Resources))
	}
	if !strings.Contains(stdout.String(), "\n  ") {
		t.Error("JSON should be indented by default")
	}
}

func TestSynthCommand_CompactAndYAML(t *testing.T) {
	cfg := testConfig(t, minimalConfig)

	var compact bytes.Buffer
	if err := SynthCommand(cfg, SynthCommandInput{Format: "json", Compact: true, Stdout: &compact, Stderr: &bytes.Buffer{}}); err != nil {
		t.Fatalf("SynthCommand(compact) error = %v", err)
	}
	if strings.Count(compact.String(), "\n") != 1 {
		t.Error("compact JSON should be a single line")
	}

	var yamlOut bytes.Buffer
	if err := SynthCommand(cfg, SynthCommandInput{Format: "yaml", Stdout: &yamlOut, Stderr: &bytes.Buffer{}}); err != nil {
		t.Fatalf("SynthCommand(yaml) error = %v", err)
	}
	for _, want := range []string{"AWSTemplateFormatVersion:", "Custom::DetectiveUpdateGraph", "Fn::GetAtt"} {
		if !strings.Contains(yamlOut.String(), want) {
			t.Errorf("YAML output missing %q", want)
		}
	}
}

func TestSynthCommand_OutFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.json")
	var stdout, stderr bytes.Buffer

	err := SynthCommand(testConfig(t, minimalConfig), SynthCommandInput{Format: "json", OutFile: path, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("SynthCommand() error = %v", err)
	}
	if stdout.Len() != 0 {
		t.Error("nothing should be written to stdout")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Error("file is not valid JSON")
	}
	if !strings.Contains(stderr.String(), "5 resources") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestSynthCommand_InvalidFormat(t *testing.T) {
	var stderr bytes.Buffer
	err := SynthCommand(testConfig(t, minimalConfig), SynthCommandInput{Format: "toml", Stdout: &bytes.Buffer{}, Stderr: &stderr})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(stderr.String(), "invalid format") {
		t.Errorf("stderr = %q", stderr.String())
	}
}
