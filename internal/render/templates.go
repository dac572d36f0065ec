package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var templateFuncs = template.FuncMap{
	"bare":  bare,
	"quote": swiftString,
	"doc":   docComment,
	"join":  strings.Join,
}

// params joins rendered parameters, one per line when there are several.
func params(list []string, indent string) string {
	if len(list) <= 1 {
		return strings.Join(list, ", ")
	}
	return "\n" + indent + strings.Join(list, ",\n"+indent) + "\n" + indent[:max(len(indent)-4, 0)]
}

// swiftString escapes s for a double-quoted Swift literal.
func swiftString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}

// docComment renders text as /// lines at the given indent, or nothing.
func docComment(indent, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString(indent)
		b.WriteString(strings.TrimRight("/// "+strings.TrimSpace(line), " "))
		b.WriteString("\n")
	}
	return b.String()
}

var templates = template.Must(template.New("swift").Funcs(templateFuncs).Parse(`
{{- define "struct" -}}
{{doc "" .Doc}}public struct {{.Name}}: Codable, Hashable {
{{- range .Properties}}
{{doc "    " .Doc}}    public let {{.Name}}: {{.Type}}
{{- end}}
{{- range .Unsupported}}
    // Unsupported: {{.Name}} ({{.Reason}})
{{- end}}
{{- if .CodingKeys}}

    enum CodingKeys: String, CodingKey {
{{- range .Properties}}
        case {{.Name}}{{if ne (bare .Name) .Key}} = "{{quote .Key}}"{{end}}
{{- end}}
    }
{{- end}}
{{- if .Init}}

    public init({{.InitParams}}) {
{{- range .Settable}}
        self.{{bare .Name}} = {{.Name}}
{{- end}}
{{- range .Consts}}
        self.{{bare .Name}} = "{{quote .Const}}"
{{- end}}
    }
{{- end}}
}
{{end -}}

{{- define "enum" -}}
{{doc "" .Doc}}public enum {{.Name}}: String, Codable, Hashable, CaseIterable {
{{- range .Members}}
    case {{.Name}} = "{{quote .Value}}"
{{- end}}
}
{{end -}}

{{- define "discriminated" -}}
{{doc "" .Doc}}public enum {{.Name}}: Codable, Hashable {
{{- range .Cases}}
    case {{.Name}}({{.Type}})
{{- end}}

    private enum CodingKeys: String, CodingKey {
        case {{.DiscriminatorCase}}{{if ne (bare .DiscriminatorCase) .Discriminator}} = "{{quote .Discriminator}}"{{end}}
    }

    public init(from decoder: Decoder) throws {
        let container = try decoder.container(keyedBy: CodingKeys.self)
        let typeValue = try container.decode(String.self, forKey: .{{.DiscriminatorCase}})
        switch typeValue {
{{- range $c := .Cases}}{{range $c.Values}}
        case "{{quote .}}": self = .{{$c.Name}}(try {{$c.Type}}(from: decoder))
{{- end}}{{end}}
        default:
            throw DecodingError.dataCorruptedError(
                forKey: .{{.DiscriminatorCase}}, in: container,
                debugDescription: "Unexpected type value: \(typeValue)")
        }
    }

    public func encode(to encoder: Encoder) throws {
        switch self {
{{- range .Cases}}
        case .{{.Name}}(let value): try value.encode(to: encoder)
{{- end}}
        }
    }
}
{{end -}}

{{- define "undiscriminated" -}}
{{doc "" .Doc}}public enum {{.Name}}: Codable, Hashable {
{{- range .Cases}}
    case {{.Name}}({{.Type}})
{{- end}}

    public init(from decoder: Decoder) throws {
        let container = try decoder.singleValueContainer()
{{- range $i, $c := .Cases}}
        {{if $i}}{{"}"}} else {{end}}if let value = try? container.decode({{$c.Type}}.self) {
            self = .{{$c.Name}}(value)
{{- end}}
        } else {
            throw DecodingError.typeMismatch(
                {{.Name}}.self,
                DecodingError.Context(
                    codingPath: decoder.codingPath,
                    debugDescription: "Invalid value for {{.Name}}"))
        }
    }

    public func encode(to encoder: Encoder) throws {
        var container = encoder.singleValueContainer()
        switch self {
{{- range .Cases}}
        case .{{.Name}}(let value): try container.encode(value)
{{- end}}
        }
    }
}
{{end -}}

{{- define "typealias" -}}
{{doc "" .Doc}}public typealias {{.Name}} = {{.Type}}
{{end -}}

{{- define "placeholder" -}}
// {{.Name}} is not generated: {{.Reason}}.
// The schema exists in the API description but has no Swift rendering yet.
{{end -}}

{{- define "resource" -}}
import Foundation

public class {{.Name}} {
    private let networkClient: NetworkClient

    init(networkClient: NetworkClient) {
        self.networkClient = networkClient
    }
{{- range .Methods}}

{{doc "    " .Doc}}    public func {{.Name}}({{.Params}}) {{if .Stream}}-> AsyncThrowingStream<{{.Return}}, Error>{{else}}async throws -> {{.Return}}{{end}} {
        {{if .Stream}}return networkClient.stream({{else}}return try await networkClient.send({{end}}
            Endpoint.{{.Name}}({{.Args}}))
    }
{{- end}}
}

// MARK: - Endpoint Definitions
{{- range .Methods}}

extension Endpoint where Response == {{.Return}} {
    fileprivate static func {{.Name}}({{.EndpointParams}}) -> Endpoint<{{.Return}}> {
        Endpoint(
            path: "{{.Path}}",
            method: .{{.Verb}},
            headers: [{{join .Headers ", "}}],
            queryParams: [{{if .Query}}{{join .Query ", "}}{{else}}:{{end}}],
            body: {{.Body}},
            cachePolicy: .reloadIgnoringLocalAndRemoteCacheData,
            timeoutDuration: timeoutDuration,
            maxRetries: maxRetries)
    }
}
{{- end}}
{{end -}}

{{- define "client" -}}
import Foundation

public class {{.Name}} {
    private let networkClient: NetworkClient

    init(networkClient: NetworkClient) {
        self.networkClient = networkClient
    }
{{- range .Resources}}

    public lazy var {{.Property}}: {{.Type}} = { {{.Type}}(networkClient: networkClient) }()
{{- end}}
}
{{end -}}
`))

// execute renders the named template.
func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
