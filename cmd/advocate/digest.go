package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/chunk"
	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/schema"
)

func newDigestCmd(flags *rootFlags) *cobra.Command {
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "digest <file>",
		Short: "Summarize a litigation document chunk by chunk",
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
			chunks := chunk.Split(string(data), chunkSize)
			if len(chunks) == 0 {
				return fmt.Errorf("%s is empty", args[0])
			}

			tmpl, err := a.templates.Load("digest")
			if err != nil {
				return err
			}
			pol := policy.Resolve("digest", flags.verifyFlag)

			var parts []string
			merged := schema.Result{State: schema.StateAccepted}
			for i, c := range chunks {
				user, err := tmpl.Render(map[string]string{
					"document":     c,
					"chunk_number": strconv.Itoa(i + 1),
					"chunk_total":  strconv.Itoa(len(chunks)),
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
				a.record("digest", tmpl, res, runErr)
				if runErr != nil {
					return runErr
				}
				parts = append(parts, res.Text)
				mergeResults(&merged, res)
			}

			merged.Text = strings.Join(parts, "\n\n")
			return a.render(&merged)
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", chunk.DefaultSize, "chunk size in characters")
	return cmd
}

// mergeResults folds a per-chunk result into the document-level report.
// The merged state is the worst state observed.
func mergeResults(into *schema.Result, res schema.Result) {
	into.Issues = append(into.Issues, res.Issues...)
	into.VerifiedCount += res.VerifiedCount
	into.UnverifiedCount += res.UnverifiedCount
	into.RemovedSpans = append(into.RemovedSpans, res.RemovedSpans...)
	into.Unconfirmed = append(into.Unconfirmed, res.Unconfirmed...)
	if res.Attempts > into.Attempts {
		into.Attempts = res.Attempts
	}
	if stateRank(res.State) > stateRank(into.State) {
		into.State = res.State
	}
}

// stateRank orders outcome states from best to worst for merging.
func stateRank(s schema.OutcomeState) int {
	switch s {
	case schema.StateAccepted:
		return 0
	case schema.StateSurgicallyEdited:
		return 1
	case schema.StateDiscarded:
		return 2
	case schema.StateRejected:
		return 3
	default:
		return 0
	}
}
