package types

// Client -> Server
//
// CreateLobby:    kill_limit?, time_limit?, weapon_index?
// JoinLobby:      {}
// SetTeam:        team: "red" | "blue"
// UpdateSettings: kill_limit?, time_limit?, weapon_index?
// LeaveLobby:     {}
// DisbandLobby:   {}  (host only)
// StartMatch:     {}  (host only)
// ReportDeath:    killer_id?
const (
	CreateLobby    = "CreateLobby"
	JoinLobby      = "JoinLobby"
	SetTeam        = "SetTeam"
	UpdateSettings = "UpdateSettings"
	LeaveLobby     = "LeaveLobby"
	DisbandLobby   = "DisbandLobby"
	StartMatch     = "StartMatch"
	ReportDeath    = "ReportDeath"
)

// Server -> Client
//
// Welcome:           player_id              (on connect)
// LobbyCreated:      ok, reason?            (requester)
// JoinedLobby:       ok, team | reason      (requester)
// TeamSwitchResult:  ok, reason?            (requester)
// LobbyRefreshed:    host, started, settings, scoreboard   (members)
// LobbyClosed:       {}                     (former members)
// LeftLobby:         {}                     (leaving member)
// MatchStarted:      spawn, team, settings, weapon   (per member)
// ScoreboardUpdated: scoreboard             (members)
// TimerUpdated:      remaining_seconds      (members)
// MatchEnded:        winning_team | tie, reason, scoreboard (members)
// Error:             reason                 (requester)
// Notice:            reason                 (affected player)
const (
	Welcome           = "Welcome"
	LobbyCreated      = "LobbyCreated"
	JoinedLobby       = "JoinedLobby"
	TeamSwitchResult  = "TeamSwitchResult"
	LobbyRefreshed    = "LobbyRefreshed"
	LobbyClosed       = "LobbyClosed"
	LeftLobby         = "LeftLobby"
	MatchStarted      = "MatchStarted"
	ScoreboardUpdated = "ScoreboardUpdated"
	TimerUpdated      = "TimerUpdated"
	MatchEnded        = "MatchEnded"
	Error             = "Error"
	Notice            = "Notice"
)
