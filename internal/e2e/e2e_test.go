package e2e

import (
    "bytes"
    "context"
    "crypto/sha256"
    "encoding/hex"
    "errors"
    "io"
    "os"
    "os/exec"
    "path/filepath"
    "sort"
    "strings"
    "testing"
    "time"

    "github.com/mark3labs/swiftsdkgen/internal/analysis"
    cli "github.com/mark3labs/swiftsdkgen/internal/cli"
    "github.com/mark3labs/swiftsdkgen/internal/codegen"
    "github.com/mark3labs/swiftsdkgen/internal/render"
)

// EVI sample: Foo is only reachable from /configs, Bar is shared with the
// chat channel, Baz is referenced by nothing.
const eviSpec = "" +
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
    "        note: {type: string}\n" +
    "      required: [bar]\n" +
    "    Bar:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        text: {type: string}\n" +
    "      required: [text]\n" +
    "    Baz:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        id: {type: string}\n"

const eviChat = "" +
    "asyncapi: 2.6.0\n" +
    "info:\n" +
    "  title: EVI Chat\n" +
    "  version: '1.0.0'\n" +
    "channels:\n" +
    "  /v0/evi/chat:\n" +
    "    publish:\n" +
    "      message:\n" +
    "        payload: {$ref: '#/components/schemas/ToolSpec'}\n" +
    "    subscribe:\n" +
    "      message:\n" +
    "        oneOf:\n" +
    "          - payload: {$ref: '#/components/schemas/Bar'}\n" +
    "          - payload: {$ref: '#/components/schemas/ServerEvent'}\n" +
    "components:\n" +
    "  schemas:\n" +
    "    ServerEvent:\n" +
    "      oneOf:\n" +
    "        - $ref: '#/components/schemas/UserMessage'\n" +
    "        - $ref: '#/components/schemas/AssistantMessage'\n" +
    "      discriminator:\n" +
    "        propertyName: type\n" +
    "        mapping:\n" +
    "          user_message: '#/components/schemas/UserMessage'\n" +
    "          assistant_message: '#/components/schemas/AssistantMessage'\n" +
    "    UserMessage:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        type: {type: string, const: user_message}\n" +
    "        text: {type: string}\n" +
    "      required: [type, text]\n" +
    "    AssistantMessage:\n" +
    "      type: object\n" +
    "      properties:\n" +
    "        type: {type: string, const: assistant_message}\n" +
    "        text: {type: string}\n" +
    "      required: [type, text]\n" +
    "    ToolSpec:\n" +
    "      anyOf:\n" +
    "        - type: object\n" +
    "          title: FunctionTool\n" +
    "          properties:\n" +
    "            kind: {type: string, const: function}\n" +
    "            name: {type: string}\n" +
    "            audience: {$ref: '#/components/schemas/Recipients'}\n" +
    "          required: [kind, name]\n" +
    "        - type: object\n" +
    "          title: WebSearchTool\n" +
    "          properties:\n" +
    "            kind: {type: string, const: web_search}\n" +
    "          required: [kind]\n" +
    "    Recipients:\n" +
    "      anyOf:\n" +
    "        - $ref: '#/components/schemas/UserMessage'\n" +
    "        - type: array\n" +
    "          items: {$ref: '#/components/schemas/UserMessage'}\n"

// eviOverride renames nothing but adds a field, exercising the merge path.
const eviOverride = "" +
    "components:\n" +
    "  schemas:\n" +
    "    Bar:\n" +
    "      properties:\n" +
    "        language: {type: string}\n"

func writeInputs(t *testing.T) (dir string, args []string) {
    t.Helper()
    dir = t.TempDir()
    write := func(name, content string) string {
        p := filepath.Join(dir, name)
        if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
            t.Fatalf("write %s: %v", name, err)
        }
        return p
    }
    args = []string{
        "--openapi", "evi=" + write("openapi.yaml", eviSpec),
        "--openapi-overrides", "evi=" + write("overrides.yaml", eviOverride),
        "--asyncapi", "evi=" + write("asyncapi.yaml", eviChat),
        "--orderings", filepath.Join(dir, "orderings.json"),
    }
    return dir, args
}

func runCLIErr(args ...string) error {
    root := cli.NewRootCmd()
    root.SetOut(io.Discard)
    root.SetErr(io.Discard)
    root.SetArgs(append([]string{"--log-level", "error"}, args...))
    return root.Execute()
}

func runCLI(t *testing.T, args ...string) {
    t.Helper()
    if err := runCLIErr(args...); err != nil {
        t.Fatalf("cli execute %v: %v", args, err)
    }
}

// digestDir hashes every file except report.json, which carries a run id.
func digestDir(t *testing.T, dir string) (files []string, sum string) {
    t.Helper()
    var list []string
    h := sha256.New()
    err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
        if err != nil { return err }
        if d.IsDir() { return nil }
        rel, rerr := filepath.Rel(dir, path)
        if rerr != nil { return rerr }
        rel = filepath.ToSlash(rel)
        if rel == codegen.ReportFile { return nil }
        list = append(list, rel)
        // hash path + contents to be robust
        _, _ = h.Write([]byte(rel))
        b, rerr := os.ReadFile(path)
        if rerr != nil { return rerr }
        _, _ = h.Write(b)
        return nil
    })
    if err != nil {
        t.Fatalf("walk %s: %v", dir, err)
    }
    sort.Strings(list)
    return list, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_ConfigsScenario(t *testing.T) {
    dir, inputs := writeInputs(t)
    out := filepath.Join(dir, "Sources")

    // The first run has no baseline, so every ordering is drift.
    err := runCLIErr(append([]string{"generate", "--out", out}, inputs...)...)
    if !errors.Is(err, cli.ErrUsage) || !strings.Contains(err.Error(), "parameter orderings differ") {
        t.Fatalf("expected ordering drift, got %v", err)
    }
    if _, err := os.Stat(out); err == nil {
        t.Fatalf("nothing should be written before acceptance")
    }

    runCLI(t, append([]string{"generate", "--out", out, "--accept-orderings"}, inputs...)...)

    for _, rel := range []string{
        "Client/EVI/Models/Bar.swift",
        "Server/EVI/Models/Foo.swift",
        "Server/EVI/Resources/Configs.swift",
        "Server/EVI/EVIServerClient.swift",
        codegen.ReportFile,
    } {
        mustExist(t, filepath.Join(out, rel))
    }
    if _, err := os.Stat(filepath.Join(out, "Client/EVI/Models/Foo.swift")); err == nil {
        t.Fatalf("server-only Foo leaked into the client SDK")
    }
    for _, p := range []string{"Client/EVI/Models/Baz.swift", "Server/EVI/Models/Baz.swift"} {
        if _, err := os.Stat(filepath.Join(out, p)); err == nil {
            t.Fatalf("orphaned Baz should not be rendered: %s", p)
        }
    }

    bar, err := os.ReadFile(filepath.Join(out, "Client/EVI/Models/Bar.swift"))
    if err != nil { t.Fatalf("read Bar: %v", err) }
    if !strings.Contains(string(bar), "public init(") || !strings.Contains(string(bar), "language") {
        t.Fatalf("Bar should be constructible and carry the override field:\n%s", bar)
    }

    for rel, wants := range map[string][]string{
        "Client/EVI/Models/ServerEvent.swift": {
            "case userMessage(UserMessage)",
            `case "assistant_message": self = .assistantMessage(try AssistantMessage(from: decoder))`,
            "forKey: .type",
        },
        "Client/EVI/Models/ToolSpec.swift": {
            "case webSearch(WebSearchTool)",
            `case "function": self = .function(try FunctionTool(from: decoder))`,
            "forKey: .kind",
            "public struct FunctionTool: Codable, Hashable {",
        },
        "Client/EVI/Models/Recipients.swift": {
            "case single(UserMessage)",
            "case many([UserMessage])",
        },
    } {
        got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(rel)))
        if err != nil { t.Fatalf("read %s: %v", rel, err) }
        for _, want := range wants {
            if !strings.Contains(string(got), want) {
                t.Fatalf("%s missing %q:\n%s", rel, want, got)
            }
        }
    }

    data, err := os.ReadFile(filepath.Join(out, codegen.ReportFile))
    if err != nil { t.Fatalf("read report: %v", err) }
    rep, err := codegen.ParseReport(data)
    if err != nil { t.Fatalf("parse report: %v", err) }
    want := map[string][2]string{
        "evi:Foo": {string(analysis.ServerOnly), string(analysis.Sent)},
        "evi:Bar": {string(analysis.Full), string(analysis.Both)},
        "evi:Baz": {string(analysis.ServerOnly), string(analysis.Orphaned)},
    }
    for _, s := range rep.Schemas {
        w, ok := want[s.Key]
        if !ok { continue }
        if string(s.Availability) != w[0] || string(s.Direction) != w[1] {
            t.Errorf("%s: got %s/%s, want %s/%s", s.Key, s.Availability, s.Direction, w[0], w[1])
        }
        delete(want, s.Key)
    }
    if len(want) != 0 {
        t.Fatalf("report is missing schemas: %v", want)
    }
    if len(rep.Discrepancies) == 0 {
        t.Fatalf("accepted drift should be listed in the report")
    }

    baseline, err := render.LoadOrderings(filepath.Join(dir, "orderings.json"))
    if err != nil { t.Fatalf("load baseline: %v", err) }
    if got := strings.Join(baseline["Foo.init"], ","); got != "bar,note" {
        t.Fatalf("Foo.init baseline: got %q", got)
    }

    // With the baseline recorded, a rerun needs no acceptance.
    runCLI(t, append([]string{"generate", "--out", out, "--force"}, inputs...)...)
}

func TestE2E_Generate_Deterministic(t *testing.T) {
    dir, inputs := writeInputs(t)
    dir1 := filepath.Join(dir, "out1")
    dir2 := filepath.Join(dir, "out2")

    runCLI(t, append([]string{"generate", "--out", dir1, "--accept-orderings"}, inputs...)...)
    runCLI(t, append([]string{"generate", "--out", dir2}, inputs...)...)

    files1, sum1 := digestDir(t, dir1)
    files2, sum2 := digestDir(t, dir2)
    if !slicesEqual(files1, files2) || sum1 != sum2 {
        t.Fatalf("generated outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", files1, files2, sum1, sum2)
    }

    // Optional: parse the sources when a Swift toolchain is available
    if os.Getenv("SWIFTSDKGEN_E2E_SWIFT") == "1" && haveCmd("swiftc") {
        var sources []string
        for _, f := range files1 {
            if strings.HasSuffix(f, ".swift") {
                sources = append(sources, filepath.Join(dir1, f))
            }
        }
        if err := runCmdWithTimeout(dir1, 2*time.Minute, "swiftc", append([]string{"-parse"}, sources...)...); err != nil {
            t.Fatalf("swiftc -parse failed: %v", err)
        }
    }
}

func haveCmd(name string) bool {
    _, err := exec.LookPath(name)
    return err == nil
}

func runCmdWithTimeout(dir string, timeout time.Duration, name string, args ...string) error {
    ctx, cancel := context.WithTimeout(context.Background(), timeout)
    defer cancel()
    cmd := exec.CommandContext(ctx, name, args...)
    cmd.Dir = dir
    var out bytes.Buffer
    cmd.Stdout = &out
    cmd.Stderr = &out
    err := cmd.Run()
    if err != nil {
        // include output for diagnostics
            return &execError{err: err, output: out.String()}
    }
    return nil
}

type execError struct {
    err    error
    output string
}

func (e *execError) Error() string { return e.err.Error() + ": " + e.output }

func mustExist(t *testing.T, path string) {
    t.Helper()
    if _, err := os.Stat(path); err != nil {
        t.Fatalf("expected file to exist: %s: %v", path, err)
    }
}

func slicesEqual(a, b []string) bool {
    if len(a) != len(b) { return false }
    for i := range a {
        if a[i] != b[i] { return false }
    }
    return true
}
