package cli

import (
    "fmt"

    "github.com/spf13/cobra"
)

// Execute runs the swiftsdkgen CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
    cmd := &cobra.Command{
        Use:           "swiftsdkgen",
        Short:         "Generate a Swift SDK from OpenAPI and AsyncAPI documents",
        Long:          "swiftsdkgen classifies OpenAPI/AsyncAPI schemas, decides which types belong to the client and server SDKs, and renders Swift sources with stable parameter orderings.",
        SilenceErrors: true,
        SilenceUsage:  true,
        RunE: func(cmd *cobra.Command, args []string) error {
            return cmd.Help()
        },
    }

    // Convert Cobra flag errors (like unknown flags) into friendly usage errors
    // that also show the command's help text.
    cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
        return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
    })

    cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
    cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
    cmd.PersistentFlags().String("log-format", "", "Log output format (console|json); defaults to console")
    cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error); defaults to info")

    g := newGenerateCmd()
    g.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
        return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
    })
    cmd.AddCommand(g)

    i := newInitCmd()
    i.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
        return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
    })
    cmd.AddCommand(i)

    return cmd
}
