package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/prompt"
)

func newVerifyCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Run citation verification over existing text",
		Long: "Runs the citation pipeline (pattern checks and database lookups)\n" +
			"over a text file without any generation. Citations confirmed absent\n" +
			"are removed and the cleaned text printed after the report.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No completion provider: verification of existing text is an
			// offline operation and must not demand an API key.
			a, err := newOfflineApp(flags)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			res, err := a.orch.Pass(cmd.Context(), string(data), policy.Resolve("verify", flags.verifyFlag))
			a.record("verify", prompt.Template{}, res, err)
			if err != nil {
				return err
			}
			return a.render(&res)
		},
	}
}
