package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/partition"
	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	"github.com/DoyleJ11/deathmatch-backend/internal/workers"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotIdle = errors.New("match controller is not idle")

type State int

const (
	Idle State = iota
	Running
	Settling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Settling:
		return "settling"
	default:
		return "unknown"
	}
}

// Session exists only while a match is running. The limits are fixed when
// the match begins; settings changed mid-match apply to the next one.
type Session struct {
	Token     string
	StartedAt time.Time
	KillLimit int
	TimeLimit int
}

type Rewards struct {
	Kill       int64
	Completion int64
	Win        int64
}

// Scheduler starts a periodic countdown for the session identified by token
// and returns a function that stops it.
type Scheduler func(token string) (stop func())

type Controller struct {
	logger     *zap.Logger
	notifier   ports.Notifier
	rewarder   ports.Rewarder
	partitions ports.Partitioner
	recorder   ports.MatchRecorder
	runner     workers.Runner
	rewards    Rewards
	schedule   Scheduler
	now        func() time.Time
	newToken   func() string

	state     State
	session   *Session
	lobby     *engine.Lobby
	stopTimer func()
}

// NewControllerOptions contains options for creating a new Controller.
// Recorder and Schedule are optional.
type NewControllerOptions struct {
	Logger     *zap.Logger
	Notifier   ports.Notifier
	Rewarder   ports.Rewarder
	Partitions ports.Partitioner
	Recorder   ports.MatchRecorder
	Runner     workers.Runner
	Rewards    Rewards
	Schedule   Scheduler
	Now        func() time.Time
	NewToken   func() string
}

func NewController(opts NewControllerOptions) *Controller {
	c := &Controller{
		logger:     opts.Logger,
		notifier:   opts.Notifier,
		rewarder:   opts.Rewarder,
		partitions: opts.Partitions,
		recorder:   opts.Recorder,
		runner:     opts.Runner,
		rewards:    opts.Rewards,
		schedule:   opts.Schedule,
		now:        opts.Now,
		newToken:   opts.NewToken,
		state:      Idle,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	c.logger = c.logger.Named("match")
	if c.now == nil {
		c.now = time.Now
	}
	if c.newToken == nil {
		c.newToken = uuid.NewString
	}
	if c.schedule == nil {
		c.schedule = func(string) func() { return func() {} }
	}
	return c
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// Begin moves Idle -> Running for l. The caller has already checked that the
// lobby may start.
func (c *Controller) Begin(l *engine.Lobby) (Session, error) {
	if c.state != Idle {
		return Session{}, ErrNotIdle
	}

	c.lobby = l
	c.session = &Session{
		Token:     c.newToken(),
		StartedAt: c.now(),
		KillLimit: l.Settings.KillLimit,
		TimeLimit: l.Settings.TimeLimit,
	}
	c.state = Running
	l.Started = true

	for _, id := range l.Members() {
		c.setPartition(id, c.session.Token)
	}
	if c.session.TimeLimit > 0 {
		c.stopTimer = c.schedule(c.session.Token)
	}

	c.logger.Info("match started",
		zap.String("token", c.session.Token),
		zap.Int("players", len(l.Roster)),
		zap.Int("kill_limit", c.session.KillLimit),
		zap.Int("time_limit", c.session.TimeLimit),
	)
	return *c.session, nil
}

// RecordDeath counts a death for victim and, when killer is another roster
// member, a kill for killer. It reports whether the match ended.
func (c *Controller) RecordDeath(victimID, killerID string) bool {
	if c.state != Running {
		return false
	}
	victim, ok := c.lobby.Member(victimID)
	if !ok {
		return false
	}
	victim.Deaths++

	killer, ok := c.lobby.Member(killerID)
	if ok && killer.ID != victim.ID {
		killer.Kills++
		c.pay("reward:kill", killer.ID, c.rewards.Kill)
	} else {
		killer = nil
	}

	board := c.lobby.Scoreboard()
	if killer != nil && board.TeamKills[killer.Team] >= c.session.KillLimit {
		c.Settle(wire.ReasonKillLimit)
		return true
	}

	c.notifier.Broadcast(c.lobby.Members(), types.ServerMessage{
		Type:       wire.ScoreboardUpdated,
		OK:         true,
		Scoreboard: &board,
	})
	return false
}

// Remaining returns the seconds left on the countdown. ok is false when no
// match is running or it has no time limit.
func (c *Controller) Remaining() (int, bool) {
	if c.state != Running || c.session.TimeLimit <= 0 {
		return 0, false
	}
	elapsed := int(c.now().Sub(c.session.StartedAt) / time.Second)
	return c.session.TimeLimit - elapsed, true
}

// Tick advances the countdown of the session identified by token. Ticks from
// a previous session are ignored. It reports whether the match ended.
func (c *Controller) Tick(token string) bool {
	if c.state != Running || c.session == nil || c.session.Token != token {
		return false
	}
	remaining, ok := c.Remaining()
	if !ok {
		return false
	}
	if remaining < 0 {
		remaining = 0
	}

	c.notifier.Broadcast(c.lobby.Members(), types.ServerMessage{
		Type:      wire.TimerUpdated,
		OK:        true,
		Remaining: &remaining,
	})
	if remaining <= 0 {
		c.Settle(wire.ReasonTimeLimit)
		return true
	}
	return false
}

// Release returns a player who left mid-match to the shared world.
func (c *Controller) Release(playerID string) {
	if c.state != Running {
		return
	}
	c.setPartition(playerID, partition.SharedWorld)
}

// Settle ends the running match. Calling it again for the same session is a
// no-op and returns false.
func (c *Controller) Settle(reason string) bool {
	if c.state != Running {
		return false
	}
	c.state = Settling
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}

	l, session := c.lobby, *c.session
	board := l.Scoreboard()
	winner := engine.TeamNone
	switch reason {
	case wire.ReasonKillLimit, wire.ReasonTimeLimit:
		winner = board.Leader()
	}

	members := l.Members()
	c.notifier.Broadcast(members, types.ServerMessage{
		Type:       wire.MatchEnded,
		OK:         true,
		Reason:     reason,
		Winner:     winnerLabel(winner),
		Scoreboard: &board,
	})

	for _, id := range members {
		c.pay("reward:completion", id, c.rewards.Completion)
		if winner != engine.TeamNone && l.Roster[id].Team == winner {
			c.pay("reward:win", id, c.rewards.Win)
		}
	}
	c.record(ports.MatchRecord{
		Token:     session.Token,
		Reason:    reason,
		Winner:    winner,
		Board:     board,
		StartedAt: session.StartedAt,
		EndedAt:   c.now(),
	})

	l.ResetRound()
	for _, id := range members {
		c.setPartition(id, partition.SharedWorld)
	}

	c.logger.Info("match settled",
		zap.String("token", session.Token),
		zap.String("reason", reason),
		zap.String("winner", winnerLabel(winner)),
		zap.Int("red_kills", board.TeamKills[engine.TeamRed]),
		zap.Int("blue_kills", board.TeamKills[engine.TeamBlue]),
	)

	c.session = nil
	c.lobby = nil
	c.state = Idle
	return true
}

func winnerLabel(t engine.Team) string {
	if t == engine.TeamNone {
		return wire.Tie
	}
	return string(t)
}

func (c *Controller) pay(name, playerID string, amount int64) {
	if c.rewarder == nil || amount <= 0 {
		return
	}
	c.runner.Go(name, func(ctx context.Context) error {
		return c.rewarder.PayReward(ctx, playerID, amount)
	}, c.degraded(playerID, "reward payment"))
}

func (c *Controller) setPartition(playerID, token string) {
	if c.partitions == nil {
		return
	}
	// Isolate and release for one player must land in order.
	c.runner.GoKeyed("partition:"+playerID, "partition", func(ctx context.Context) error {
		return c.partitions.SetPartition(ctx, playerID, token)
	}, c.degraded(playerID, "match partition"))
}

func (c *Controller) record(rec ports.MatchRecord) {
	if c.recorder == nil {
		return
	}
	c.runner.Go("record", func(ctx context.Context) error {
		return c.recorder.RecordMatch(ctx, rec)
	}, nil)
}

// degraded reports a failed hook to the affected player only.
func (c *Controller) degraded(playerID, hook string) func(error) {
	return func(err error) {
		err = fmt.Errorf("%s: %w: %w", hook, engine.ErrHookFailed, err)
		c.logger.Warn("hook failed",
			zap.String("player", playerID),
			zap.String("kind", string(engine.KindOf(err))),
			zap.Error(err),
		)
		c.notifier.Send(playerID, types.ServerMessage{
			Type:   wire.Notice,
			Reason: hook + ": " + engine.ReasonOf(err),
		})
	}
}
