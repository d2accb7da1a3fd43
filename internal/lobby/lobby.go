package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/match"
	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	"github.com/DoyleJ11/deathmatch-backend/internal/workers"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"go.uber.org/zap"
)

type Msg interface{ isLobbyMsg() }

type CreateLobby struct {
	ClientID string
	Name     string
	Settings engine.SettingsPatch
}

type JoinLobby struct {
	ClientID string
	Name     string
}

type SetTeam struct {
	ClientID string
	Team     string
}

type UpdateSettings struct {
	ClientID string
	Settings engine.SettingsPatch
}

type LeaveLobby struct{ ClientID string }

type DisbandLobby struct{ ClientID string }

// Disconnect is sent by the transport when a connection goes away.
type Disconnect struct{ ClientID string }

type StartMatch struct{ ClientID string }

// ReportDeath is sent by the victim. KillerID may be empty.
type ReportDeath struct {
	ClientID string
	KillerID string
}

// Tick is fed back by the countdown goroutine of the session Token.
type Tick struct{ Token string }

type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (CreateLobby) isLobbyMsg()    {}
func (JoinLobby) isLobbyMsg()      {}
func (SetTeam) isLobbyMsg()        {}
func (UpdateSettings) isLobbyMsg() {}
func (LeaveLobby) isLobbyMsg()     {}
func (DisbandLobby) isLobbyMsg()   {}
func (Disconnect) isLobbyMsg()     {}
func (StartMatch) isLobbyMsg()     {}
func (ReportDeath) isLobbyMsg()    {}
func (Tick) isLobbyMsg()           {}
func (GetState) isLobbyMsg()       {}
func (Shutdown) isLobbyMsg()       {}

// View is a read-only copy of the lobby for HTTP and tests.
type View struct {
	Exists     bool              `json:"exists"`
	Host       string            `json:"host,omitempty"`
	Started    bool              `json:"started"`
	Match      string            `json:"match"`
	Settings   engine.Settings   `json:"settings"`
	Scoreboard engine.Scoreboard `json:"scoreboard"`
	Remaining  *int              `json:"remaining_seconds,omitempty"`
}

// Manager owns the single lobby. All mutations happen on its loop goroutine.
type Manager struct {
	inbox        chan Msg
	lobby        *engine.Lobby
	match        *match.Controller
	notifier     ports.Notifier
	logger       *zap.Logger
	rules        engine.Rules
	spawns       map[engine.Team][]engine.SpawnPoint
	weapons      []engine.Weapon
	tickInterval time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewManagerOptions contains options for creating a new Manager.
type NewManagerOptions struct {
	Logger       *zap.Logger
	Notifier     ports.Notifier
	Rewarder     ports.Rewarder
	Partitions   ports.Partitioner
	Recorder     ports.MatchRecorder
	Runner       workers.Runner
	Rewards      match.Rewards
	Rules        engine.Rules
	Spawns       map[engine.Team][]engine.SpawnPoint
	Weapons      []engine.Weapon
	TickInterval time.Duration
	Now          func() time.Time
}

func NewManager(parent context.Context, opts NewManagerOptions) *Manager {
	m := newManager(parent, opts)
	go m.loop()
	return m
}

func newManager(parent context.Context, opts NewManagerOptions) *Manager {
	ctx, cancel := context.WithCancel(parent)
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	opts.Rules.WeaponCount = len(opts.Weapons)
	if opts.Runner == nil {
		opts.Runner = workers.NewDispatcher(ctx, workers.NewDispatcherOptions{Logger: logger})
	}

	m := &Manager{
		inbox:        make(chan Msg, 64),
		notifier:     opts.Notifier,
		logger:       logger.Named("lobby"),
		rules:        opts.Rules,
		spawns:       opts.Spawns,
		weapons:      opts.Weapons,
		tickInterval: opts.TickInterval,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	m.match = match.NewController(match.NewControllerOptions{
		Logger:     logger,
		Notifier:   opts.Notifier,
		Rewarder:   opts.Rewarder,
		Partitions: opts.Partitions,
		Recorder:   opts.Recorder,
		Runner:     opts.Runner,
		Rewards:    opts.Rewards,
		Schedule:   m.scheduleTicks,
		Now:        opts.Now,
	})
	return m
}

// Inbox exposes the manager's inbox to the transport layer.
func (m *Manager) Inbox() chan<- Msg { return m.inbox }

// Snapshot asks the loop for a View.
func (m *Manager) Snapshot(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case m.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Done is closed once the loop has exited and any running match has settled.
func (m *Manager) Done() <-chan struct{} { return m.done }

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return

		case msg := <-m.inbox:
			if _, ok := msg.(Shutdown); ok {
				m.shutdown()
				return
			}
			m.handle(msg)
		}
	}
}

func (m *Manager) handle(msg Msg) {
	switch msg := msg.(type) {
	case CreateLobby:
		m.createLobby(msg)
	case JoinLobby:
		m.joinLobby(msg)
	case SetTeam:
		m.setTeam(msg)
	case UpdateSettings:
		m.updateSettings(msg)
	case LeaveLobby:
		m.leave(msg.ClientID, true)
	case Disconnect:
		m.leave(msg.ClientID, false)
	case DisbandLobby:
		m.disband(msg)
	case StartMatch:
		m.startMatch(msg)
	case ReportDeath:
		if m.match.RecordDeath(msg.ClientID, msg.KillerID) {
			m.refresh()
		}
	case Tick:
		if m.match.Tick(msg.Token) {
			m.refresh()
		}
	case GetState:
		msg.Reply <- m.view()
	}
}

func (m *Manager) shutdown() {
	if m.match.Settle(wire.ReasonAbandoned) {
		m.refresh()
	}
	m.cancel()
}

func (m *Manager) createLobby(msg CreateLobby) {
	l, err := engine.Open(m.lobby, msg.ClientID, msg.Name, msg.Settings, m.rules)
	if err != nil {
		m.reject(msg.ClientID, wire.LobbyCreated, err)
		return
	}
	m.lobby = l
	m.logger.Info("lobby created", zap.String("host", msg.ClientID), zap.Any("settings", l.Settings))
	m.notifier.Send(msg.ClientID, types.ServerMessage{Type: wire.LobbyCreated, OK: true})
	m.refresh()
}

func (m *Manager) joinLobby(msg JoinLobby) {
	team, err := m.lobby.Join(msg.ClientID, msg.Name, m.rules)
	if err != nil {
		m.reject(msg.ClientID, wire.JoinedLobby, err)
		return
	}
	m.logger.Debug("player joined", zap.String("player", msg.ClientID), zap.String("team", string(team)))
	m.notifier.Send(msg.ClientID, types.ServerMessage{Type: wire.JoinedLobby, OK: true, Team: team})
	m.refresh()
}

func (m *Manager) setTeam(msg SetTeam) {
	team, _ := engine.ParseTeam(msg.Team)
	err := m.lobby.SetTeam(msg.ClientID, team)
	switch {
	case errors.Is(err, engine.ErrInvalidTeam), errors.Is(err, engine.ErrNotInLobby):
		return
	case err != nil:
		m.reject(msg.ClientID, wire.TeamSwitchResult, err)
		return
	}
	m.refresh()
	m.notifier.Send(msg.ClientID, types.ServerMessage{Type: wire.TeamSwitchResult, OK: true, Team: team})
}

func (m *Manager) updateSettings(msg UpdateSettings) {
	if err := m.lobby.UpdateSettings(msg.ClientID, msg.Settings, m.rules); err != nil {
		return
	}
	m.refresh()
}

func (m *Manager) leave(id string, explicit bool) {
	if _, ok := m.lobby.Member(id); !ok {
		if explicit {
			m.reject(id, wire.Error, engine.ErrNotInLobby)
		}
		return
	}
	if id == m.lobby.Host {
		m.closeLobby()
		return
	}

	m.match.Release(id)
	m.lobby.Remove(id)
	if explicit {
		m.notifier.Send(id, types.ServerMessage{Type: wire.LeftLobby, OK: true})
	}
	if m.lobby.Started && len(m.lobby.Roster) < 2 {
		m.match.Settle(wire.ReasonAbandoned)
	}
	m.refresh()
}

func (m *Manager) disband(msg DisbandLobby) {
	if m.lobby == nil {
		m.reject(msg.ClientID, wire.Error, engine.ErrNoLobby)
		return
	}
	if msg.ClientID != m.lobby.Host {
		m.reject(msg.ClientID, wire.Error, engine.ErrNotHost)
		return
	}
	m.closeLobby()
}

// closeLobby ends any running match without a winner and tears the lobby down.
func (m *Manager) closeLobby() {
	members := m.lobby.Members()
	m.match.Settle(wire.ReasonHostLeft)
	m.logger.Info("lobby closed", zap.String("host", m.lobby.Host), zap.Int("members", len(members)))
	m.lobby = nil
	m.notifier.Broadcast(members, types.ServerMessage{Type: wire.LobbyClosed, OK: true})
}

func (m *Manager) startMatch(msg StartMatch) {
	if err := m.lobby.CanStart(msg.ClientID); err != nil {
		m.reject(msg.ClientID, wire.Error, err)
		return
	}
	if _, err := m.match.Begin(m.lobby); err != nil {
		m.logger.Error("failed to begin match", zap.Error(err))
		m.reject(msg.ClientID, wire.Error, engine.ErrMatchInProgress)
		return
	}

	settings := m.lobby.Settings
	var weapon *engine.Weapon
	if settings.WeaponIndex >= 0 && settings.WeaponIndex < len(m.weapons) {
		w := m.weapons[settings.WeaponIndex]
		weapon = &w
	}
	spawns := engine.AssignSpawns(m.lobby, m.spawns)
	for _, id := range m.lobby.Members() {
		out := types.ServerMessage{
			Type:     wire.MatchStarted,
			OK:       true,
			Team:     m.lobby.Roster[id].Team,
			Settings: &settings,
			Weapon:   weapon,
		}
		if point, ok := spawns[id]; ok {
			out.Spawn = &point
		}
		m.notifier.Send(id, out)
	}

	board := m.lobby.Scoreboard()
	m.notifier.Broadcast(m.lobby.Members(), types.ServerMessage{
		Type:       wire.ScoreboardUpdated,
		OK:         true,
		Scoreboard: &board,
	})
	m.refresh()
}

func (m *Manager) refresh() {
	if m.lobby == nil {
		return
	}
	settings := m.lobby.Settings
	board := m.lobby.Scoreboard()
	m.notifier.Broadcast(m.lobby.Members(), types.ServerMessage{
		Type:       wire.LobbyRefreshed,
		OK:         true,
		Host:       m.lobby.Host,
		Started:    m.lobby.Started,
		Settings:   &settings,
		Scoreboard: &board,
	})
}

// reject answers the requester only; nothing is broadcast.
func (m *Manager) reject(id, msgType string, err error) {
	m.logger.Debug("request rejected",
		zap.String("player", id),
		zap.String("reply", msgType),
		zap.String("kind", string(engine.KindOf(err))),
		zap.Error(err),
	)
	m.notifier.Send(id, types.ServerMessage{Type: msgType, OK: false, Reason: engine.ReasonOf(err)})
}

func (m *Manager) view() View {
	v := View{
		Exists:     m.lobby != nil,
		Match:      m.match.State().String(),
		Scoreboard: m.lobby.Scoreboard(),
	}
	if m.lobby != nil {
		v.Host = m.lobby.Host
		v.Started = m.lobby.Started
		v.Settings = m.lobby.Settings
	}
	if remaining, ok := m.match.Remaining(); ok {
		v.Remaining = &remaining
	}
	return v
}

// scheduleTicks feeds Tick messages for token into the inbox until stopped.
func (m *Manager) scheduleTicks(token string) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(m.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				select {
				case m.inbox <- Tick{Token: token}:
				case <-stop:
					return
				case <-m.ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}
