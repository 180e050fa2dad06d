package models

// Sport identifies which preset drives the period and clock fields
type Sport string

const (
	SportVolleyball Sport = "volleyball"
	SportBasketball Sport = "basketball"
	SportFootball   Sport = "football"
	SportBaseball   Sport = "baseball"
)

// MatchState is the single shared scoreboard record.
// The JSON field names are the wire contract for controllers and overlays.
type MatchState struct {
	Sport     Sport  `json:"sport"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	HomeScore int    `json:"homeScore"`
	AwayScore int    `json:"awayScore"`
	HomeColor string `json:"homeColor"`
	AwayColor string `json:"awayColor"`
	HomeLogo  string `json:"homeLogo"`
	AwayLogo  string `json:"awayLogo"`
	Period    string `json:"period"`
	Clock     string `json:"clock"`
}

// DefaultMatchState returns the state a freshly started process serves
func DefaultMatchState() MatchState {
	return MatchState{
		Sport:     SportVolleyball,
		HomeTeam:  "Home",
		AwayTeam:  "Away",
		HomeScore: 0,
		AwayScore: 0,
		HomeColor: "#ff3333",
		AwayColor: "#3333ff",
		HomeLogo:  "",
		AwayLogo:  "",
		Period:    "Set 1",
		Clock:     "25 pts",
	}
}

// Side selects the home or away half of the scoreboard
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)
