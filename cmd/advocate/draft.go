package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/vector"
)

func newDraftCmd(flags *rootFlags) *cobra.Command {
	var precedentLimit int

	cmd := &cobra.Command{
		Use:   "draft <instructions-file>",
		Short: "Draft submissions using retrieved precedent context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			instructions := string(data)

			var precedents []vector.Precedent
			store, err := vector.New(a.cfg.VectorScheme, a.cfg.VectorHost)
			if err == nil {
				precedents, err = store.Retrieve(ctx, instructions, precedentLimit)
			}
			if err != nil {
				// Precedent retrieval is an enrichment; drafting proceeds
				// without it.
				cmd.PrintErrf("warning: precedent retrieval unavailable: %v\n", err)
			}

			tmpl, err := a.templates.Load("draft")
			if err != nil {
				return err
			}
			user, err := tmpl.Render(map[string]string{
				"instructions": instructions,
				"precedents":   vector.FormatForPrompt(precedents),
			})
			if err != nil {
				return err
			}

			req := llm.Request{
				System:      tmpl.System,
				Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
				MaxTokens:   tmpl.MaxTokens,
				Temperature: tmpl.Temperature,
			}
			res, runErr := a.orch.Run(ctx, req, policy.Resolve("draft", flags.verifyFlag))
			a.record("draft", tmpl, res, runErr)
			if runErr != nil {
				return runErr
			}
			return a.render(&res)
		},
	}
	cmd.Flags().IntVar(&precedentLimit, "precedents", 5, "maximum precedent extracts to retrieve")
	return cmd
}
