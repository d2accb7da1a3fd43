package engine

import (
	"sort"
)

type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

var Teams = []Team{TeamRed, TeamBlue}

func ParseTeam(team string) (Team, bool) {
	switch Team(team) {
	case TeamRed:
		return TeamRed, true
	case TeamBlue:
		return TeamBlue, true
	default:
		return TeamNone, false
	}
}

func (t Team) Other() Team {
	switch t {
	case TeamRed:
		return TeamBlue
	case TeamBlue:
		return TeamRed
	default:
		return TeamNone
	}
}

type Player struct {
	ID     string
	Name   string
	Team   Team
	Kills  int
	Deaths int
}

type Settings struct {
	KillLimit   int `json:"kill_limit"`
	TimeLimit   int `json:"time_limit"` // seconds, 0 = unlimited
	WeaponIndex int `json:"weapon_index"`
}

// SettingsPatch carries optional settings from a request. Nil fields are absent.
type SettingsPatch struct {
	KillLimit   *int
	TimeLimit   *int
	WeaponIndex *int
}

type Rules struct {
	MaxPlayers       int
	DefaultKillLimit int
	DefaultTimeLimit int
	DefaultWeapon    int
	WeaponCount      int
}

// Lobby is the single pre-match container. A nil *Lobby means no lobby exists.
type Lobby struct {
	Host     string
	Roster   map[string]*Player
	Settings Settings
	Started  bool
}

// Open creates the lobby with host as its only member. It refuses to replace
// an existing lobby, which keeps at most one lobby alive.
func Open(current *Lobby, hostID, hostName string, patch SettingsPatch, rules Rules) (*Lobby, error) {
	if current != nil {
		return nil, ErrLobbyAlreadyExists
	}
	l := &Lobby{
		Host:     hostID,
		Roster:   make(map[string]*Player),
		Settings: NormalizeSettings(patch, rules),
	}
	l.Roster[hostID] = &Player{ID: hostID, Name: hostName, Team: TeamRed}
	return l, nil
}

// Member looks up a roster entry.
func (l *Lobby) Member(id string) (*Player, bool) {
	if l == nil || id == "" {
		return nil, false
	}
	p, ok := l.Roster[id]
	return p, ok
}

// Members returns roster ids in a stable order.
func (l *Lobby) Members() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.Roster))
	for id := range l.Roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Lobby) TeamCounts() map[Team]int {
	counts := map[Team]int{TeamRed: 0, TeamBlue: 0}
	if l == nil {
		return counts
	}
	for _, p := range l.Roster {
		counts[p.Team]++
	}
	return counts
}

// Join adds id to the smaller team, ties going to red.
func (l *Lobby) Join(id, name string, rules Rules) (Team, error) {
	if l == nil {
		return TeamNone, ErrNoLobby
	}
	if l.Started {
		return TeamNone, ErrMatchInProgress
	}
	if _, ok := l.Roster[id]; ok {
		return TeamNone, ErrAlreadyJoined
	}
	if len(l.Roster) >= rules.MaxPlayers {
		return TeamNone, ErrLobbyFull
	}

	counts := l.TeamCounts()
	team := TeamRed
	if counts[TeamBlue] < counts[TeamRed] {
		team = TeamBlue
	}
	l.Roster[id] = &Player{ID: id, Name: name, Team: team}
	return team, nil
}

// SetTeam moves id to team. The move is allowed when the destination, after
// the move, is at most one larger than the other team counted without id.
func (l *Lobby) SetTeam(id string, team Team) error {
	if team != TeamRed && team != TeamBlue {
		return ErrInvalidTeam
	}
	if l == nil {
		return ErrNoLobby
	}
	if l.Started {
		return ErrMatchInProgress
	}
	p, ok := l.Roster[id]
	if !ok {
		return ErrNotInLobby
	}
	if p.Team == team {
		return ErrAlreadySelected
	}

	counts := l.TeamCounts()
	counts[p.Team]--
	if counts[team]+1 > counts[team.Other()]+1 {
		return ErrTeamFull
	}
	p.Team = team
	return nil
}

// UpdateSettings applies each valid field of patch independently and ignores
// the rest. Only the host may change settings.
func (l *Lobby) UpdateSettings(requester string, patch SettingsPatch, rules Rules) error {
	if l == nil {
		return ErrNoLobby
	}
	if requester != l.Host {
		return ErrNotHost
	}
	if patch.KillLimit != nil && *patch.KillLimit > 0 {
		l.Settings.KillLimit = *patch.KillLimit
	}
	if patch.TimeLimit != nil && *patch.TimeLimit >= 0 {
		l.Settings.TimeLimit = *patch.TimeLimit
	}
	if patch.WeaponIndex != nil && validWeapon(*patch.WeaponIndex, rules) {
		l.Settings.WeaponIndex = *patch.WeaponIndex
	}
	return nil
}

// Remove drops id from the roster and reports whether it was a member.
func (l *Lobby) Remove(id string) bool {
	if l == nil {
		return false
	}
	if _, ok := l.Roster[id]; !ok {
		return false
	}
	delete(l.Roster, id)
	return true
}

// CanStart reports why requester cannot start the match, if anything.
func (l *Lobby) CanStart(requester string) error {
	if l == nil {
		return ErrNoLobby
	}
	if requester != l.Host {
		return ErrNotHost
	}
	if l.Started {
		return ErrMatchInProgress
	}
	if len(l.Roster) < 2 {
		return ErrNotEnoughPlayers
	}
	return nil
}

// ResetRound zeroes per-round counters and clears the started flag. Roster and
// settings are kept.
func (l *Lobby) ResetRound() {
	if l == nil {
		return
	}
	for _, p := range l.Roster {
		p.Kills = 0
		p.Deaths = 0
	}
	l.Started = false
}
