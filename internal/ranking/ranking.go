// Package ranking orders candidate modules for superclass placement.
package ranking

// Score is a candidate module's placement profile relative to the target modules.
type Score struct {
	Root       string
	HasSources bool
	Worst      int  // largest hop count from any target module
	Total      int  // sum of hop counts over all target modules
	Primary    bool // the candidate owns the first-listed target
}

// NewScore builds a Score from the candidate's distance to each target module.
func NewScore(root string, hasSources, primary bool, distances []int) Score {
	s := Score{Root: root, HasSources: hasSources, Primary: primary}
	for _, d := range distances {
		if d > s.Worst {
			s.Worst = d
		}
		s.Total += d
	}
	return s
}

// Better reports whether c should replace the current best.
// Modules with a source directory win outright; then the smaller worst
// distance, then the smaller total. Remaining ties go to the primary
// module, and otherwise to the lexicographically smaller root unless the
// current best is already the primary module.
func Better(c, best Score) bool {
	if c.HasSources != best.HasSources {
		return c.HasSources
	}
	if c.Worst != best.Worst {
		return c.Worst < best.Worst
	}
	if c.Total != best.Total {
		return c.Total < best.Total
	}
	if c.Primary {
		return true
	}
	return !best.Primary && c.Root < best.Root
}

// Best returns the index of the winning score, or -1 if scores is empty.
// Scores are considered in order, so earlier entries keep ties that
// Better does not break.
func Best(scores []Score) int {
	best := -1
	for i := range scores {
		if best < 0 || Better(scores[i], scores[best]) {
			best = i
		}
	}
	return best
}
