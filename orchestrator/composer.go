package orchestrator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/triagekit/probekit/results"
)

// TruncationMarker is appended once when Compose runs out of budget
// mid-result.
const TruncationMarker = "\n[output truncated]"

// Compose renders the cached results, most recent first, into a text
// block of at most maxChars characters. A result that does not fit whole
// is cut on a rune boundary and ends with TruncationMarker; nothing
// after it is rendered. It returns the empty string when there are no
// cached results.
func (o *Orchestrator) Compose(maxChars int) string {
	cached := o.store.List()
	if len(cached) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range cached {
		budget := maxChars - b.Len()
		if budget <= 0 {
			break
		}

		section := renderResult(r)
		if len(section) <= budget {
			b.WriteString(section)
			continue
		}

		// A cut section always carries the marker, so the marker's
		// space is reserved first. When not even the marker fits, the
		// section is omitted entirely.
		keep := budget - len(TruncationMarker)
		if keep < 0 {
			break
		}
		b.WriteString(section[:runeCut(section, keep)])
		b.WriteString(TruncationMarker)
		break
	}
	return b.String()
}

// runeCut returns the largest index not above max that does not split a
// multibyte rune in s. Requires max < len(s).
func runeCut(s string, max int) int {
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return max
}

// renderResult formats one result: a single status header line, stderr
// when present, then the structured payload or the raw stdout.
func renderResult(r *results.RunResult) string {
	status := "ok"
	if !r.Success {
		status = "failed"
	}
	exit := "none"
	if r.ExitCode != nil {
		exit = strconv.Itoa(*r.ExitCode)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %s (%s) %s at %s exit=%s in %s\n",
		r.Title, r.ID, status,
		r.StartedAt.Format(time.RFC3339),
		exit,
		r.Duration.Round(time.Millisecond))

	if r.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(r.Stderr)
		b.WriteString("\n")
	}

	if r.Data != nil {
		if payload, err := json.MarshalIndent(r.Data, "", "  "); err == nil {
			b.Write(payload)
			b.WriteString("\n")
		}
	} else if r.Stdout != "" {
		b.WriteString(r.Stdout)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	return b.String()
}
