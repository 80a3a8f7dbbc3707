package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/orchestrate"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/schema"
)

func newStrategyCmd(flags *rootFlags) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "strategy <matter-file>",
		Short: "Brainstorm litigation strategies; unverifiable options are dropped whole",
		Long: "Generates several strategy options for the matter. Each option is\n" +
			"verified independently; one that fails verification is discarded\n" +
			"rather than edited, favouring fewer but clean outputs.",
		Args: cobra.ExactArgs(1),
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

			tmpl, err := a.templates.Load("strategy")
			if err != nil {
				return err
			}
			pol := policy.Resolve("strategy", flags.verifyFlag)

			// Options are generated sequentially because each prompt excludes
			// the earlier options; verification inside each pass still runs
			// its citation lookups concurrently.
			var kept []string
			merged := schema.Result{State: schema.StateAccepted}
			discarded := 0
			for i := 1; i <= count; i++ {
				user, err := tmpl.Render(map[string]string{
					"matter":          string(data),
					"option_number":   strconv.Itoa(i),
					"earlier_options": earlierOptions(kept),
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
				res, runErr := a.orch.Run(ctx, req, pol)
				a.record("strategy", tmpl, res, runErr)
				if runErr != nil && !errors.Is(runErr, orchestrate.ErrRejected) {
					return runErr
				}
				if res.State == schema.StateDiscarded || res.State == schema.StateRejected {
					discarded++
					mergeResults(&merged, res)
					continue
				}
				kept = append(kept, res.Text)
				mergeResults(&merged, res)
			}

			if len(kept) == 0 {
				return fmt.Errorf("all %d strategy options failed citation verification", count)
			}
			if discarded > 0 {
				cmd.PrintErrf("note: %d of %d options discarded after failed verification\n", discarded, count)
			}

			var sb strings.Builder
			for i, s := range kept {
				fmt.Fprintf(&sb, "### Option %d\n\n%s\n\n", i+1, s)
			}
			merged.Text = strings.TrimSpace(sb.String())
			// Discarded units are gone; the surviving set is the output.
			if merged.State == schema.StateDiscarded || merged.State == schema.StateRejected {
				merged.State = schema.StateAccepted
			}
			return a.render(&merged)
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of strategy options to generate")
	return cmd
}

func earlierOptions(kept []string) string {
	if len(kept) == 0 {
		return "(none yet)"
	}
	return strings.Join(kept, "\n---\n")
}
