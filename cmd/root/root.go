// Package root holds the live-captions command line.
package root

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd/root.Version=...".
var Version = "dev"

func NewRootCmd() *cobra.Command {
	serve := newServeCmd()

	cmd := &cobra.Command{
		Use:   "live-captions",
		Short: "live-captions - live speech captioning and translation",
		Long: `live-captions streams audio from browsers or phone calls to a speech
recognizer, and translates the recognized text in segments with an LLM.`,
		Example: `  live-captions serve
  live-captions serve --recognizer stub --translator stub
  live-captions serve --listen :8080 --quiet-period 1500ms`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serve.SetContext(cmd.Context())
			return serve.RunE(serve, args)
		},
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
