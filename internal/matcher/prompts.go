package matcher

import (
	"fmt"
	"strings"

	"github.com/beaconlabs-io/muse-evidence/internal/retriever"
)

func keywordPrompt(fromText, toText string) string {
	return fmt.Sprintf(`You are helping search a research evidence database.

A logic model contains the causal claim:
  cause:  %q
  effect: %q

Produce 3-6 short search keywords or phrases that would find research
literature about this causal relationship. Prefer domain terms over
function words.

Respond with JSON only, no prose:
{"keywords": ["...", "..."]}`, fromText, toText)
}

func scoringPrompt(fromText, toText string, cand retriever.RetrievedEvidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are judging whether a research document supports a causal claim.

Claim: %q leads to %q

Document title: %s
`, fromText, toText, cand.Title)

	if len(cand.Results) > 0 {
		b.WriteString("Reported intervention -> outcome pairs:\n")
		for _, r := range cand.Results {
			fmt.Fprintf(&b, "  - %s -> %s", r.Intervention, r.OutcomeVariable)
			if r.Outcome != "" {
				fmt.Fprintf(&b, " (%s)", r.Outcome)
			}
			b.WriteString("\n")
		}
	}
	if cand.Summary != "" {
		fmt.Fprintf(&b, "Excerpt:\n%s\n", cand.Summary)
	}

	b.WriteString(`
Score 0-100 how directly this document's findings support the claim:
  90-100  the document studies this exact relationship
  70-89   closely related intervention and outcome
  40-69   related domain, indirect support
  0-39    unrelated

Respond with JSON only, no prose:
{"score": <0-100>, "reasoning": "<one sentence>"}`)
	return b.String()
}
