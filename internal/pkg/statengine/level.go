package statengine

// Experience awarded per entry: a flat base plus a bonus per point of
// positive stat change. Negative changes never subtract experience.
const (
	baseEntryExp         = 15
	expPerPositivePoint  = 3
)

// ExperienceToNextLevel returns the experience required to advance from the
// given level to the next one. Monotonically increasing.
func ExperienceToNextLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return 100 + 20*(level-1)
}

// LevelForExperience derives the character level purely from total
// experience by walking the cost curve from level 1. Deterministic and
// re-derivable; there is no separate incremental level counter to drift.
func LevelForExperience(total int) int {
	level := 1
	accumulated := 0
	for {
		next := ExperienceToNextLevel(level)
		if accumulated+next > total {
			return level
		}
		accumulated += next
		level++
	}
}

// ExperienceForEntry computes the experience one entry grants from its
// validated stat changes.
func ExperienceForEntry(changes map[string]StatChange) int {
	exp := baseEntryExp
	for _, change := range changes {
		if change.Change > 0 {
			exp += expPerPositivePoint * change.Change
		}
	}
	return exp
}
