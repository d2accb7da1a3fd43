package types

// End reasons carried by MatchEnded.
const (
	ReasonKillLimit = "kill_limit"
	ReasonTimeLimit = "time_limit"
	ReasonHostLeft  = "host_left"
	ReasonAbandoned = "abandoned"
)

// Tie is the winning_team value when no team won.
const Tie = "tie"

// LobbyRefreshed / GET /lobby:
//   host: string
//   started: boolean
//   settings: { kill_limit, time_limit, weapon_index }
//   scoreboard: {
//     team_kills: { red: number, blue: number }
//     players: [{ id, name, team, kills, deaths }]
//   }
