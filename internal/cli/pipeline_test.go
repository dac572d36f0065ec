package cli

import (
    "bytes"
    "errors"
    "io"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

const eviSpecYAML = "" +
    "openapi: 3.0.0\n" +
    "info:\n" +
    "  title: EVI\n" +
    "  version: '1.0.0'\n" +
    "paths:\n" +
    "  /v0/evi/configs:\n" +
    "    post:\n" +
    "      operationId: create_config\n" +
    "      requestBody:\n" +
    "        content:\n" +
    "          application/json:\n" +
    "            schema: {$ref: '#/components/schemas/Foo'}\n" +
    "      responses:\n" +
    "        '201':\n" +
    "          description: created\n" +
    "components:\n" +
    "  schemas:\n" +
    "    Foo:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        bar: {$ref: '#/components/schemas/Bar'}\n" +
    "      required: [bar]\n" +
    "    Bar:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        text: {type: string}\n" +
    "      required: [text]\n"

const eviChatYAML = "" +
    "asyncapi: 2.6.0\n" +
    "info:\n" +
    "  title: EVI Chat\n" +
    "  version: '1.0.0'\n" +
    "channels:\n" +
    "  /v0/evi/chat:\n" +
    "    subscribe:\n" +
    "      message:\n" +
    "        payload: {$ref: '#/components/schemas/Bar'}\n"

func captureStdout(fn func()) string {
    old := os.Stdout
    r, w, _ := os.Pipe()
    os.Stdout = w
    defer func() { os.Stdout = old }()
    fn()
    _ = w.Close()
    var buf bytes.Buffer
    _, _ = io.Copy(&buf, r)
    return buf.String()
}

func quietLogs(t *testing.T) {
    t.Helper()
    logOutput = io.Discard
    t.Cleanup(func() { logOutput = os.Stderr })
}

func writeInputs(t *testing.T, dir string) (string, string) {
    t.Helper()
    specPath := filepath.Join(dir, "evi.yaml")
    if err := os.WriteFile(specPath, []byte(eviSpecYAML), 0o600); err != nil {
        t.Fatalf("write spec: %v", err)
    }
    chatPath := filepath.Join(dir, "chat.yaml")
    if err := os.WriteFile(chatPath, []byte(eviChatYAML), 0o600); err != nil {
        t.Fatalf("write chat spec: %v", err)
    }
    return specPath, chatPath
}

func TestGeneratePipeline_DryRun(t *testing.T) {
    quietLogs(t)
    dir := t.TempDir()
    specPath, chatPath := writeInputs(t, dir)
    outDir := filepath.Join(dir, "out")

    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs([]string{"generate", "--openapi", "evi=" + specPath, "--asyncapi", "evi=" + chatPath, "--out", outDir, "--accept-orderings", "--dry-run"})

    out := captureStdout(func() {
        if err := root.Execute(); err != nil {
            t.Fatalf("execute: %v", err)
        }
    })
    if !strings.Contains(out, "Planned writes to") {
        t.Fatalf("expected dry-run plan output, got: %s", out)
    }
    for _, want := range []string{"- Client/EVI/Models/Bar.swift", "- Server/EVI/Models/Foo.swift", "- report.json"} {
        if !strings.Contains(out, want) {
            t.Fatalf("plan missing %q:\n%s", want, out)
        }
    }
    // Dry-run should not create the directory
    if _, err := os.Stat(outDir); err == nil {
        t.Fatalf("expected no writes on dry-run")
    }
}

func TestGeneratePipeline_DriftNeedsAcceptance(t *testing.T) {
    quietLogs(t)
    dir := t.TempDir()
    specPath, chatPath := writeInputs(t, dir)
    outDir := filepath.Join(dir, "out")
    orderings := filepath.Join(dir, "orderings.json")

    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs([]string{"generate", "--openapi", "evi=" + specPath, "--asyncapi", "evi=" + chatPath, "--out", outDir, "--orderings", orderings})

    err := root.Execute()
    if err == nil {
        t.Fatalf("expected ordering drift to fail the run")
    }
    if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "--accept-orderings") {
        t.Fatalf("expected usage error with hint, got %v", err)
    }
    if _, err := os.Stat(outDir); err == nil {
        t.Fatalf("expected no writes after drift")
    }
    if _, err := os.Stat(orderings); err == nil {
        t.Fatalf("baseline must not be written without acceptance")
    }
}

func TestGeneratePipeline_SpecErrorHasLocation(t *testing.T) {
    quietLogs(t)
    dir := t.TempDir()
    missing := filepath.Join(dir, "missing.yaml")

    root := NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs([]string{"generate", "--openapi", "evi=" + missing, "--out", filepath.Join(dir, "out")})

    err := root.Execute()
    if !errors.Is(err, ErrUsage) {
        t.Fatalf("expected usage error, got %v", err)
    }
    if !strings.Contains(err.Error(), "Location: "+missing) {
        t.Fatalf("expected location in message, got %v", err)
    }
}
