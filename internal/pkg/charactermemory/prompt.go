package charactermemory

import (
	"fmt"
	"strings"

	"github.com/gabrielonicala/quillia/app/models"
)

// BuildStoryPrompt assembles the structured prompt block handed to the
// external story generator: character profile, world-state summary, condensed
// summary log, enumerated recent entries newest first, and fixed continuity
// instructions. Pure formatting; the sole interface exposed to the story
// generation collaborator.
func BuildStoryPrompt(character *models.Character, memory *Memory, userInput string) string {
	var b strings.Builder

	b.WriteString("CHARACTER PROFILE\n")
	fmt.Fprintf(&b, "Name: %s\n", character.Name)
	fmt.Fprintf(&b, "Theme: %s\n", character.Theme)
	if character.Appearance != "" {
		fmt.Fprintf(&b, "Appearance: %s\n", character.Appearance)
	}
	fmt.Fprintf(&b, "Level: %d\n", character.Level)

	if stats, err := character.Stats(); err == nil && len(stats) > 0 {
		b.WriteString("Stats:")
		for _, def := range models.StatDefinitionsForTheme(character.Theme) {
			if stat, ok := stats[def.Name]; ok {
				fmt.Fprintf(&b, " %s %d,", def.Name, stat.Value)
			}
		}
		b.WriteString("\n")
	}

	ws := memory.WorldState
	if len(ws.Relationships) > 0 || len(ws.Locations) > 0 || len(ws.OngoingPlots) > 0 {
		b.WriteString("\nWORLD STATE\n")
		for name, relation := range ws.Relationships {
			fmt.Fprintf(&b, "- %s: %s\n", name, relation)
		}
		if len(ws.Locations) > 0 {
			fmt.Fprintf(&b, "Known locations: %s\n", strings.Join(ws.Locations, ", "))
		}
		if len(ws.OngoingPlots) > 0 {
			fmt.Fprintf(&b, "Ongoing plots: %s\n", strings.Join(ws.OngoingPlots, ", "))
		}
	}

	if memory.SummaryLog != "" {
		b.WriteString("\nSTORY SO FAR\n")
		b.WriteString(memory.SummaryLog)
		b.WriteString("\n")
	}

	if len(memory.RecentEntries) > 0 {
		b.WriteString("\nRECENT CHAPTERS (newest first)\n")
		for i, entry := range memory.RecentEntries {
			text := entry.ReimaginedText
			if text == "" {
				text = entry.OriginalText
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, text)
		}
	}

	b.WriteString("\nTODAY'S JOURNAL ENTRY\n")
	b.WriteString(userInput)
	b.WriteString("\n")

	b.WriteString("\nCONTINUITY INSTRUCTIONS\n")
	b.WriteString("Weave today's entry into the ongoing story. Reference prior chapters subtly where it fits; ")
	b.WriteString("do not retell them. Keep established relationships, locations and plots consistent. ")
	b.WriteString("Vary your openings; never start consecutive chapters the same way.\n")

	return b.String()
}
