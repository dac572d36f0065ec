package cli

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/cobra"

    "github.com/mark3labs/swiftsdkgen/internal/render"
)

// DefaultConfigFile is where init writes the sample config.
const DefaultConfigFile = "swiftsdkgen.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:   "init",
        Short: "Scaffold a sample swiftsdkgen configuration file",
        Long:  "Scaffold a commented swiftsdkgen configuration file that documents the generate options.",
        RunE: func(cmd *cobra.Command, args []string) error {
            out, err := cmd.Flags().GetString("out")
            if err != nil {
                return err
            }
            force, err := cmd.Flags().GetBool("force")
            if err != nil {
                return err
            }
            verbose, err := cmd.Flags().GetBool("verbose")
            if err != nil {
                return err
            }
            cfg := &InitConfig{
                OutputPath: out,
                Force:      force,
                Verbose:    verbose,
            }
            return initRunner(cmd.Context(), cfg)
        },
    }

    cmd.Flags().String("out", DefaultConfigFile, "Where to write the sample config file")
    cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

    return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
    _ = ctx

    out := strings.TrimSpace(cfg.OutputPath)
    if out == "" {
        out = DefaultConfigFile
    }
    absPath, err := filepath.Abs(out)
    if err != nil {
        return fmt.Errorf("init: resolve output path: %w", err)
    }

    if st, err := os.Stat(absPath); err == nil && !cfg.Force {
        if st.Mode().IsRegular() {
            return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
        }
    }

    content := strings.TrimSpace(sampleConfigYAML) + "\n"
    if err := render.WriteFileAtomic(absPath, []byte(content)); err != nil {
        return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
    }
    fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
    return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# swiftsdkgen configuration (YAML)
# Command-line flags override config values.

# OpenAPI documents keyed by namespace (local path or http/https URL).
# openapi:
#   evi: ./evi/openapi.yaml
#   tts: ./tts/openapi.yaml

# Override documents merged on top, applied in list order.
# openapiOverrides:
#   evi: [./evi/openapi-overrides.yaml]

# AsyncAPI documents keyed by namespace.
# asyncapi:
#   evi: ./evi/asyncapi.json

# asyncapiOverrides:
#   evi: ./evi/asyncapi-overrides.yaml

# Probe order for refs that only resolve by bare name.
# namespaces: [empathic-voice, tts, expression-measurement]

# Endpoint path patterns (regular expressions) only the server SDK calls.
# An empty list disables the default.
# serverOnlyPaths: [/configs]

# Parameter ordering baseline. Drift from it fails generation
# unless acceptOrderings is set.
# orderings: ./orderings.json
# acceptOrderings: false

# Output directory for the Swift sources and report.json.
# out: ./Sources

# Validate merged OpenAPI documents with kin-openapi.
# validate: false

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite a non-empty output directory.
# force: false

# Regenerate whenever an input document changes.
# watch: false

# Log format (console or json) and minimum level.
# logFormat: console
# logLevel: info
# verbose: false
`
