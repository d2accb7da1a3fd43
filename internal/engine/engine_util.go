package engine

import "sort"

type PlayerLine struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Team   Team   `json:"team"`
	Kills  int    `json:"kills"`
	Deaths int    `json:"deaths"`
}

// Scoreboard is derived from the roster on demand and never stored.
type Scoreboard struct {
	TeamKills map[Team]int `json:"team_kills"`
	Players   []PlayerLine `json:"players"`
}

func (l *Lobby) Scoreboard() Scoreboard {
	board := Scoreboard{
		TeamKills: map[Team]int{TeamRed: 0, TeamBlue: 0},
		Players:   []PlayerLine{},
	}
	if l == nil {
		return board
	}
	for _, p := range l.Roster {
		board.TeamKills[p.Team] += p.Kills
		board.Players = append(board.Players, PlayerLine{
			ID:     p.ID,
			Name:   p.Name,
			Team:   p.Team,
			Kills:  p.Kills,
			Deaths: p.Deaths,
		})
	}
	sort.Slice(board.Players, func(i, j int) bool {
		a, b := board.Players[i], board.Players[j]
		if a.Team != b.Team {
			return a.Team == TeamRed
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Deaths != b.Deaths {
			return a.Deaths < b.Deaths
		}
		return a.ID < b.ID
	})
	return board
}

// Leader returns the team with strictly more kills, or TeamNone on a tie.
func (b Scoreboard) Leader() Team {
	red, blue := b.TeamKills[TeamRed], b.TeamKills[TeamBlue]
	switch {
	case red > blue:
		return TeamRed
	case blue > red:
		return TeamBlue
	default:
		return TeamNone
	}
}

// NormalizeSettings fills absent or out-of-range fields with the configured
// defaults and clamps the weapon index into the catalog.
func NormalizeSettings(patch SettingsPatch, rules Rules) Settings {
	s := Settings{
		KillLimit:   rules.DefaultKillLimit,
		TimeLimit:   rules.DefaultTimeLimit,
		WeaponIndex: rules.DefaultWeapon,
	}
	if patch.KillLimit != nil && *patch.KillLimit > 0 {
		s.KillLimit = *patch.KillLimit
	}
	if patch.TimeLimit != nil && *patch.TimeLimit >= 0 {
		s.TimeLimit = *patch.TimeLimit
	}
	if patch.WeaponIndex != nil {
		s.WeaponIndex = *patch.WeaponIndex
	}
	s.WeaponIndex = clampWeapon(s.WeaponIndex, rules)
	return s
}

func validWeapon(idx int, rules Rules) bool {
	return idx >= 0 && idx < rules.WeaponCount
}

func clampWeapon(idx int, rules Rules) int {
	if rules.WeaponCount <= 0 || idx < 0 {
		return 0
	}
	if idx >= rules.WeaponCount {
		return rules.WeaponCount - 1
	}
	return idx
}
