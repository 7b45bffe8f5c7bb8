package models

// StatDefinition describes one stat in a theme's fixed vocabulary.
type StatDefinition struct {
	Name        string
	Description string
}

const (
	ThemeFantasy = "fantasy"
	ThemeScifi   = "scifi"
	ThemeMystery = "mystery"
)

// DefaultStatValue is the starting value for every stat of a new character.
const DefaultStatValue = 10

// themeStats is the fixed stat vocabulary per theme. The stat engine rejects
// any stat name outside the character's theme set, so adding a theme here is
// the only way to introduce new stats.
var themeStats = map[string][]StatDefinition{
	ThemeFantasy: {
		{Name: "Valor", Description: "Courage in the face of dragons, deadlines and dark forests"},
		{Name: "Wisdom", Description: "Lessons drawn from the day's events"},
		{Name: "Cunning", Description: "Clever solutions and quick thinking"},
		{Name: "Vitality", Description: "Physical energy and resilience"},
		{Name: "Fortune", Description: "Luck, serendipity and happy accidents"},
	},
	ThemeScifi: {
		{Name: "Intellect", Description: "Analytical and scientific reasoning"},
		{Name: "Resolve", Description: "Determination under pressure"},
		{Name: "Daring", Description: "Willingness to push into the unknown"},
		{Name: "Sync", Description: "Harmony with crew, systems and surroundings"},
		{Name: "Ingenuity", Description: "Improvised fixes and inventions"},
	},
	ThemeMystery: {
		{Name: "Insight", Description: "Reading people and situations"},
		{Name: "Nerve", Description: "Staying cool when the plot thickens"},
		{Name: "Charm", Description: "Winning allies and loosening tongues"},
		{Name: "Stealth", Description: "Moving unseen through the day"},
		{Name: "Luck", Description: "Being in the right alley at the right time"},
	},
}

// IsKnownTheme reports whether the theme has a defined stat vocabulary.
func IsKnownTheme(theme string) bool {
	_, ok := themeStats[theme]
	return ok
}

// StatDefinitionsForTheme returns the theme's stat vocabulary, or nil for an
// unknown theme.
func StatDefinitionsForTheme(theme string) []StatDefinition {
	return themeStats[theme]
}

// ThemeDefinesStat reports whether the stat name belongs to the theme's
// vocabulary.
func ThemeDefinesStat(theme, statName string) bool {
	for _, def := range themeStats[theme] {
		if def.Name == statName {
			return true
		}
	}
	return false
}
