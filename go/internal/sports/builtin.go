package sports

import (
	"fmt"

	"github.com/mcdev12/streamscore/go/internal/models"
)

// Builtin returns the presets shipped with the control panel
func Builtin() []models.SportPreset {
	return []models.SportPreset{
		{
			Sport:       models.SportVolleyball,
			PeriodLabel: "Set",
			Periods:     []string{"Set 1", "Set 2", "Set 3", "Set 4", "Set 5"},
			Clock:       "25 pts",
		},
		{
			Sport:       models.SportBasketball,
			PeriodLabel: "Quarter",
			Periods:     []string{"1st Q", "2nd Q", "3rd Q", "4th Q", "OT"},
			Clock:       "12:00",
		},
		{
			Sport:       models.SportFootball,
			PeriodLabel: "Quarter",
			Periods:     []string{"1st Q", "2nd Q", "3rd Q", "4th Q", "OT"},
			Clock:       "15:00",
		},
		{
			Sport:       models.SportBaseball,
			PeriodLabel: "Inning",
			Periods:     innings(9),
			Clock:       "∞",
		},
	}
}

// innings expands to Top 1, Bot 1, ... Top n, Bot n, Extra
func innings(n int) []string {
	out := make([]string, 0, 2*n+1)
	for i := 1; i <= n; i++ {
		out = append(out, fmt.Sprintf("Top %d", i), fmt.Sprintf("Bot %d", i))
	}
	return append(out, "Extra")
}
