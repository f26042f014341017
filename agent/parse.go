package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/parliament/types"
)

var (
	confidenceRe = regexp.MustCompile(`(?i)Confidence:\s*(\d+(?:\.\d+)?)`)
	riskRe       = regexp.MustCompile(`(?i)Risk:\s*(\d+(?:\.\d+)?)`)
	outcomeRe    = regexp.MustCompile(`(?i)Outcome:\s*(\d+(?:\.\d+)?)`)
)

// parseResponse extracts the CROSS score and analysis text from a raw model
// reply. Missing or malformed score fields degrade to neutral midpoint
// values: a data-quality signal, not a round failure.
func parseResponse(raw string) (types.Score, string) {
	analysis := extractSection(raw, "ANALYSIS")
	if analysis == "" {
		analysis = strings.TrimSpace(raw)
	}

	confidence, okC := parseScoreField(confidenceRe, raw)
	risk, okR := parseScoreField(riskRe, raw)
	outcome, okO := parseScoreField(outcomeRe, raw)

	if !okC || !okR || !okO {
		return types.NeutralDefaultScore("score fields missing or malformed in analyst output"), analysis
	}

	explanation := analysis
	if explanation == "" {
		explanation = "no detailed explanation provided"
	}

	score := types.Score{
		Confidence:  confidence,
		Risk:        risk,
		Outcome:     outcome,
		Explanation: explanation,
	}
	return score.Clamp(), analysis
}

func parseScoreField(re *regexp.Regexp, raw string) (float64, bool) {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractSection pulls the body of an ALL-CAPS "NAME:" section from raw.
func extractSection(raw, name string) string {
	re := regexp.MustCompile(`(?is)` + regexp.QuoteMeta(name) + `:\s*(.*?)(?:\n[A-Z][A-Z ]*:|$)`)
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
