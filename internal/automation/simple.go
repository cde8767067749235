package automation

import "regexp"

// Curated greeting/FAQ patterns for the SEMI_AUTO "simple message" heuristic.
// A simple message is safe to answer automatically; anything else only gets a
// draft. The heuristic is fixed; see DESIGN.md for the pluggable-policy note.
var simplePatterns = []*regexp.Regexp{
	// Spanish
	regexp.MustCompile(`(?i)^hola\b`),
	regexp.MustCompile(`(?i)^buenos?\s*(días|dias|tardes|noches)`),
	regexp.MustCompile(`(?i)^buenas\b`),
	regexp.MustCompile(`(?i)^gracias\b`),
	regexp.MustCompile(`(?i)^ok\b`),
	regexp.MustCompile(`(?i)^vale\b`),
	regexp.MustCompile(`(?i)^perfecto\b`),
	regexp.MustCompile(`(?i)^entendido\b`),
	regexp.MustCompile(`(?i)^de acuerdo\b`),
	regexp.MustCompile(`(?i)\bhorario`),
	regexp.MustCompile(`(?i)\babierto`),
	regexp.MustCompile(`(?i)\bcerrado`),
	regexp.MustCompile(`(?i)\bprecio`),
	regexp.MustCompile(`(?i)\btarifa`),
	regexp.MustCompile(`(?i)\bdirección`),
	regexp.MustCompile(`(?i)\bdónde\s+está`),
	regexp.MustCompile(`(?i)\bcómo\s+llegar`),
	regexp.MustCompile(`(?i)\btorneo`),
	regexp.MustCompile(`(?i)\bcompetición`),
	regexp.MustCompile(`(?i)\breserva`),
	regexp.MustCompile(`(?i)\btee\s*time`),
	regexp.MustCompile(`(?i)\bgreen\s*fee`),
	// English
	regexp.MustCompile(`(?i)^hi\b`),
	regexp.MustCompile(`(?i)^hello\b`),
	regexp.MustCompile(`(?i)^hey\b`),
	regexp.MustCompile(`(?i)^thanks\b`),
	regexp.MustCompile(`(?i)^thank you\b`),
	regexp.MustCompile(`(?i)\bhours?\b`),
	regexp.MustCompile(`(?i)\bopen\b`),
	regexp.MustCompile(`(?i)\bprice`),
	regexp.MustCompile(`(?i)\brate`),
	regexp.MustCompile(`(?i)\btournament`),
	regexp.MustCompile(`(?i)\bbooking`),
}

func isSimpleMessage(content string) bool {
	if len(content) < 20 {
		return true
	}
	if len(content) < 50 {
		for _, p := range simplePatterns {
			if p.MatchString(content) {
				return true
			}
		}
	}
	return false
}
