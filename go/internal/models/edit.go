package models

// SportPreset describes how a sport seeds the period and clock fields
type SportPreset struct {
	Sport       Sport    `json:"sport" yaml:"sport"`
	PeriodLabel string   `json:"periodLabel" yaml:"period_label"`
	Periods     []string `json:"periods" yaml:"periods"`
	Clock       string   `json:"clock" yaml:"clock"`
}

// FirstPeriod returns the opening period label, or "" for an empty preset
func (p SportPreset) FirstPeriod() string {
	if len(p.Periods) == 0 {
		return ""
	}
	return p.Periods[0]
}

// MatchPatch is a partial edit. Nil fields are left untouched by Apply.
type MatchPatch struct {
	Sport     *Sport  `json:"sport,omitempty"`
	HomeTeam  *string `json:"homeTeam,omitempty"`
	AwayTeam  *string `json:"awayTeam,omitempty"`
	HomeScore *int    `json:"homeScore,omitempty"`
	AwayScore *int    `json:"awayScore,omitempty"`
	HomeColor *string `json:"homeColor,omitempty"`
	AwayColor *string `json:"awayColor,omitempty"`
	HomeLogo  *string `json:"homeLogo,omitempty"`
	AwayLogo  *string `json:"awayLogo,omitempty"`
	Period    *string `json:"period,omitempty"`
	Clock     *string `json:"clock,omitempty"`
}

// Apply merges the patch over s and returns the merged full value.
// The receiver is not modified.
func (s MatchState) Apply(p MatchPatch) MatchState {
	if p.Sport != nil {
		s.Sport = *p.Sport
	}
	if p.HomeTeam != nil {
		s.HomeTeam = *p.HomeTeam
	}
	if p.AwayTeam != nil {
		s.AwayTeam = *p.AwayTeam
	}
	if p.HomeScore != nil {
		s.HomeScore = *p.HomeScore
	}
	if p.AwayScore != nil {
		s.AwayScore = *p.AwayScore
	}
	if p.HomeColor != nil {
		s.HomeColor = *p.HomeColor
	}
	if p.AwayColor != nil {
		s.AwayColor = *p.AwayColor
	}
	if p.HomeLogo != nil {
		s.HomeLogo = *p.HomeLogo
	}
	if p.AwayLogo != nil {
		s.AwayLogo = *p.AwayLogo
	}
	if p.Period != nil {
		s.Period = *p.Period
	}
	if p.Clock != nil {
		s.Clock = *p.Clock
	}
	return s
}

// Score returns the score for one side
func (s MatchState) Score(side Side) int {
	if side == SideAway {
		return s.AwayScore
	}
	return s.HomeScore
}

// IncrementScore adds one point to a side. There is no upper bound.
func (s MatchState) IncrementScore(side Side) MatchState {
	return s.Apply(ScorePatch(side, s.Score(side)+1))
}

// DecrementScore removes one point from a side, never going below zero
func (s MatchState) DecrementScore(side Side) MatchState {
	return s.Apply(ScorePatch(side, max(0, s.Score(side)-1)))
}

// WithPreset switches sport, resetting period and clock from the preset.
// Teams, scores, colors and logos are kept.
func (s MatchState) WithPreset(p SportPreset) MatchState {
	s.Sport = p.Sport
	s.Period = p.FirstPeriod()
	s.Clock = p.Clock
	return s
}

// NextPeriod advances to the label after the current one in the preset.
// The last label is sticky; a label the preset doesn't know restarts at the first.
func (s MatchState) NextPeriod(p SportPreset) MatchState {
	for i, label := range p.Periods {
		if label != s.Period {
			continue
		}
		if i+1 < len(p.Periods) {
			s.Period = p.Periods[i+1]
		}
		return s
	}
	s.Period = p.FirstPeriod()
	return s
}

// ScorePatch builds a patch setting one side's score
func ScorePatch(side Side, score int) MatchPatch {
	if side == SideAway {
		return MatchPatch{AwayScore: &score}
	}
	return MatchPatch{HomeScore: &score}
}
