// Command advocate is a CLI legal assistant for Australian litigation
// workflows. Every generated output passes through the citation verification
// pipeline before it reaches the user.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jgowrie/advocate/internal/audit"
	"github.com/jgowrie/advocate/internal/config"
	"github.com/jgowrie/advocate/internal/llm"
	"github.com/jgowrie/advocate/internal/orchestrate"
	"github.com/jgowrie/advocate/internal/pattern"
	"github.com/jgowrie/advocate/internal/prompt"
	"github.com/jgowrie/advocate/internal/report"
	"github.com/jgowrie/advocate/internal/schema"
	"github.com/jgowrie/advocate/internal/vcache"
	"github.com/jgowrie/advocate/internal/verify"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	provider   string
	model      string
	verifyFlag bool
	output     string // "markdown" or "json"
}

func main() {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "advocate",
		Short: "Litigation assistant with citation verification",
		Long: "advocate orchestrates LLM providers for Australian litigation work.\n" +
			"Generated citations are pattern-checked offline and verified against\n" +
			"the case-law database before output is returned.",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config YAML (default: user config dir)")
	pf.StringVar(&flags.provider, "provider", "", "completion provider: anthropic, openai, google")
	pf.StringVar(&flags.model, "model", "", "model name for the selected provider")
	pf.BoolVar(&flags.verifyFlag, "verify", false, "enable online citation verification where the command's policy leaves it off")
	pf.StringVar(&flags.output, "output", "markdown", "report format: markdown or json")

	root.AddCommand(
		newResearchCmd(flags),
		newDigestCmd(flags),
		newFactsCmd(flags),
		newStrategyCmd(flags),
		newDraftCmd(flags),
		newVerifyCmd(flags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired collaborators every command needs.
type app struct {
	cfg       config.Config
	flags     *rootFlags
	templates *prompt.Store
	provider  llm.Provider
	orch      *orchestrate.Orchestrator
	log       *audit.Logger
}

// newApp loads configuration and wires the full pipeline, including the
// completion provider. Flag values override config file values for provider
// and model.
func newApp(flags *rootFlags) (*app, error) {
	return buildApp(flags, true)
}

// newOfflineApp wires the pipeline without a completion provider, for
// commands that only check existing text and must not demand an API key.
func newOfflineApp(flags *rootFlags) (*app, error) {
	return buildApp(flags, false)
}

func buildApp(flags *rootFlags, withProvider bool) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.provider != "" {
		cfg.Provider = flags.provider
	}
	if flags.model != "" {
		cfg.Model = flags.model
	}

	var provider llm.Provider
	if withProvider {
		if provider, err = llm.NewProvider(cfg.Provider, cfg.Model); err != nil {
			return nil, err
		}
	}

	validator := pattern.New(cfg.Rules())
	cache := vcache.New(cfg.CacheCapacity)
	breaker := verify.NewBreaker(cfg.BreakerThreshold, cfg.BreakerWindow, cfg.BreakerReset)
	verifier := verify.New(cfg.LookupBaseURL, cache, breaker, verify.Options{
		Timeout: cfg.LookupTimeout,
	})

	return &app{
		cfg:       cfg,
		flags:     flags,
		templates: prompt.NewStore(cfg.TemplateDir),
		provider:  provider,
		orch:      orchestrate.New(validator, verifier, provider),
		log:       audit.New(cfg.AuditPath),
	}, nil
}

// render writes the verification report for res to stdout in the requested
// format.
func (a *app) render(res *schema.Result) error {
	switch a.flags.output {
	case "json":
		b, err := report.RenderJSON(res)
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	case "markdown", "":
		fmt.Print(report.RenderMarkdown(res))
		return nil
	default:
		return fmt.Errorf("unknown output format %q (markdown or json)", a.flags.output)
	}
}

// record writes an audit entry for one verification pass.
func (a *app) record(command string, t prompt.Template, res schema.Result, runErr error) {
	e := audit.Entry{
		Command:     command,
		Provider:    a.cfg.Provider,
		Model:       a.cfg.Model,
		MaxTokens:   t.MaxTokens,
		Temperature: t.Temperature,
		Outcome:     res.State,
		Verified:    res.VerifiedCount,
		Unverified:  res.UnverifiedCount,
		Attempts:    res.Attempts,
	}
	if runErr != nil {
		e.Error = runErr.Error()
	}
	a.log.Record(e)
}
