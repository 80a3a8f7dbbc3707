// Package report renders verification results as JSON or Markdown. The
// rendering always separates citations removed because they were confirmed
// fake from citations kept without confirmation; conflating the two would
// mislead a reader about reliability.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jgowrie/advocate/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of the result.
func RenderJSON(res *schema.Result) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("report: nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a Markdown verification report followed by the
// cleaned output text.
func RenderMarkdown(res *schema.Result) string {
	if res == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("## Citation Verification\n\n")
	fmt.Fprintf(&sb, "**Outcome:** %s  \n", res.State)
	fmt.Fprintf(&sb, "**Verified:** %d | **Unverified:** %d | **Attempts:** %d\n\n",
		res.VerifiedCount, res.UnverifiedCount, res.Attempts)

	if len(res.RemovedSpans) > 0 {
		sb.WriteString("### Removed (confirmed unverifiable)\n\n")
		for _, r := range res.RemovedSpans {
			fmt.Fprintf(&sb, "- ~~%s~~\n", mdEscape(r))
		}
		sb.WriteString("\n")
	}

	if len(res.Unconfirmed) > 0 {
		sb.WriteString("### Kept without confirmation\n\n")
		sb.WriteString("These citations were retained but could not be checked " +
			"(foreign series or lookup unavailable):\n\n")
		for _, u := range res.Unconfirmed {
			fmt.Fprintf(&sb, "- %s\n", mdEscape(u))
		}
		sb.WriteString("\n")
	}

	if len(res.Issues) > 0 {
		sb.WriteString("### Findings\n\n")
		sb.WriteString("| Citation | Category | Severity | Detail |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, is := range res.Issues {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				mdEscape(is.Citation), is.Category, is.Severity, mdEscape(is.Detail))
		}
		sb.WriteString("\n")
	}

	if len(res.RejectedFor) > 0 {
		sb.WriteString("### Rejected\n\n")
		sb.WriteString("Output withheld; these citations remain unresolved:\n\n")
		for _, r := range res.RejectedFor {
			fmt.Fprintf(&sb, "- %s\n", mdEscape(r))
		}
		sb.WriteString("\n")
	}

	if res.Text != "" {
		sb.WriteString("---\n\n")
		sb.WriteString(res.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
