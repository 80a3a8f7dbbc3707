package main

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/policy"
	"github.com/jgowrie/advocate/internal/search"
)

func newResearchCmd(flags *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "research <question>",
		Short: "Answer a legal research question with verified citations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			question := strings.Join(args, " ")

			searcher := search.New(a.cfg.SearchBaseURL, a.cfg.SearchAPIKey, &http.Client{Timeout: search.DefaultTimeout})
			results, err := searcher.Search(ctx, question, limit)
			if err != nil {
				// Degrade to a model-only answer; search is an enrichment,
				// not a dependency.
				cmd.PrintErrf("warning: search unavailable: %v\n", err)
			}

			tmpl, err := a.templates.Load("research")
			if err != nil {
				return err
			}
			user, err := tmpl.Render(map[string]string{
				"question":       question,
				"search_results": search.FormatForPrompt(results),
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
			res, runErr := a.orch.Run(ctx, req, policy.Resolve("research", flags.verifyFlag))
			a.record("research", tmpl, res, runErr)
			if runErr != nil {
				return runErr
			}
			return a.render(&res)
		},
	}
	cmd.Flags().IntVar(&limit, "search-results", 5, "maximum web search results to include")
	return cmd
}
