package notify

import (
	"fmt"
	"strings"

	"spreadpilot/internal/domain"
)

// markdownEscaper neutralizes the Markdown control characters Telegram
// parses, so free text like block reasons cannot break the message.
var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"`", "\\`",
)

// EscapeMarkdown escapes free text for inclusion in a Markdown message.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// FormatAlert renders an alert into a channel title and body. The body uses
// plain Markdown shared by Telegram and Discord: legs one per line, then
// credit and trade context, then the escaped reason.
func FormatAlert(a domain.AlertItem) (title, body string) {
	switch a.Type {
	case domain.AlertEntry:
		title = fmt.Sprintf("Entry: %s", a.Strategy)
	case domain.AlertExit:
		title = fmt.Sprintf("Exit: %s %s", a.Strategy, a.TradeID)
	case domain.AlertRisk:
		title = fmt.Sprintf("Risk: %s", a.Strategy)
	default:
		title = "System"
	}
	if a.Severity == domain.SeverityCritical {
		title = "🚨 " + title
	}

	var b strings.Builder
	for _, leg := range a.Legs {
		fmt.Fprintf(&b, "%s %.0f %s x%d\n", leg.Action, leg.Strike, leg.Type, leg.Quantity())
	}
	if a.Credit > 0 {
		fmt.Fprintf(&b, "Credit: %.2f\n", a.Credit)
	}
	if a.TradeID != "" {
		fmt.Fprintf(&b, "Trade: %s\n", a.TradeID)
	}
	if a.Reason != "" {
		b.WriteString(EscapeMarkdown(a.Reason))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "id: `%s`", a.ID)
	return title, b.String()
}
