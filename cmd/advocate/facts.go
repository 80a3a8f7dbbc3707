package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/policy"
)

func newFactsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "facts <file>",
		Short: "Extract a dated chronology of material facts from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			tmpl, err := a.templates.Load("facts")
			if err != nil {
				return err
			}
			user, err := tmpl.Render(map[string]string{"document": string(data)})
			if err != nil {
				return err
			}

			req := llm.Request{
				System:      tmpl.System,
				Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
				MaxTokens:   tmpl.MaxTokens,
				Temperature: tmpl.Temperature,
			}
			res, runErr := a.orch.Run(cmd.Context(), req, policy.Resolve("facts", flags.verifyFlag))
			a.record("facts", tmpl, res, runErr)
			if runErr != nil {
				return runErr
			}
			return a.render(&res)
		},
	}
}
