package relex

import (
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// triggerLexicon maps a trigger verb lemma to exactly one predicate, so a
// sentence hit is unambiguous before the type-compatibility check.
var triggerLexicon = map[string]core.Predicate{
	"upregulate":   core.PredicateUpregulates,
	"up-regulate":  core.PredicateUpregulates,
	"increase":     core.PredicateUpregulates,
	"elevate":      core.PredicateUpregulates,
	"enhance":      core.PredicateUpregulates,
	"stimulate":    core.PredicateUpregulates,
	"activate":     core.PredicateUpregulates,

	"downregulate":  core.PredicateDownregulates,
	"down-regulate": core.PredicateDownregulates,
	"decrease":      core.PredicateDownregulates,
	"reduce":        core.PredicateDownregulates,
	"suppress":      core.PredicateDownregulates,
	"inhibit":       core.PredicateDownregulates,
	"repress":       core.PredicateDownregulates,

	"cause":   core.PredicateCauses,
	"induce":  core.PredicateCauses,
	"trigger": core.PredicateCauses,
	"provoke": core.PredicateCauses,
	"produce": core.PredicateCauses,
	"accelerate": core.PredicateCauses,

	"treat":      core.PredicateTreats,
	"ameliorate": core.PredicateTreats,
	"alleviate":  core.PredicateTreats,
	"rescue":     core.PredicateTreats,
	"mitigate":   core.PredicateTreats,

	"prevent":    core.PredicatePrevents,
	"protect":    core.PredicatePrevents,
	"counteract": core.PredicatePrevents,
	"attenuate":  core.PredicatePrevents,

	"interact": core.PredicateInteractsWith,
	"bind":     core.PredicateInteractsWith,
	"associate": core.PredicateAssociatedWith,
}

// beForms recognizes auxiliary be-verbs for passive detection.
var beForms = map[string]bool{
	"is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "being": true,
}

// verbLemma reduces an inflected verb to its lexicon lemma. Token lemmas from
// preprocessing are preferred; this is the degraded-mode fallback.
func verbLemma(tok core.Token) string {
	if tok.Lemma != "" {
		return tok.Lemma
	}
	w := strings.ToLower(tok.Text)
	for _, suffix := range []string{"es", "ed", "ing", "s", "d"} {
		if trimmed := strings.TrimSuffix(w, suffix); trimmed != w && len(trimmed) >= 3 {
			if _, ok := triggerLexicon[trimmed]; ok {
				return trimmed
			}
			// induced -> induc -> induce
			if _, ok := triggerLexicon[trimmed+"e"]; ok {
				return trimmed + "e"
			}
		}
	}
	return w
}

// triggerFor reports the predicate assigned to the token, if any.
func triggerFor(tok core.Token) (core.Predicate, bool) {
	pred, ok := triggerLexicon[verbLemma(tok)]
	return pred, ok
}
