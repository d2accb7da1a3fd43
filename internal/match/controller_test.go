package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/partition"
	"github.com/DoyleJ11/deathmatch-backend/internal/ports"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	"github.com/DoyleJ11/deathmatch-backend/internal/workers"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sent struct {
	to  []string
	msg types.ServerMessage
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Send(id string, msg types.ServerMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{to: []string{id}, msg: msg})
}

func (n *recordingNotifier) Broadcast(ids []string, msg types.ServerMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{to: append([]string(nil), ids...), msg: msg})
}

func (n *recordingNotifier) ofType(typ string) []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sent
	for _, s := range n.sent {
		if s.msg.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

type fakeRewarder struct {
	failFor map[string]bool
	paid    map[string]int64
}

func (r *fakeRewarder) PayReward(_ context.Context, id string, amount int64) error {
	if r.failFor[id] {
		return errors.New("wallet offline")
	}
	if r.paid == nil {
		r.paid = map[string]int64{}
	}
	r.paid[id] += amount
	return nil
}

type fakeRecorder struct{ records []ports.MatchRecord }

func (r *fakeRecorder) RecordMatch(_ context.Context, rec ports.MatchRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctrl       *Controller
	lobby      *engine.Lobby
	notifier   *recordingNotifier
	rewarder   *fakeRewarder
	partitions *partition.InMemoryRegistry
	recorder   *fakeRecorder
	clock      *fakeClock
	scheduled  []string
	stopped    int
}

func newFixture(t *testing.T, killLimit, timeLimit int, members ...string) *fixture {
	t.Helper()
	rules := engine.Rules{MaxPlayers: 8, DefaultKillLimit: 30, DefaultTimeLimit: 600, WeaponCount: 1}
	l, err := engine.Open(nil, "p1", "P1", engine.SettingsPatch{KillLimit: &killLimit, TimeLimit: &timeLimit}, rules)
	require.NoError(t, err)
	for _, id := range members {
		_, err := l.Join(id, id, rules)
		require.NoError(t, err)
	}

	f := &fixture{
		lobby:      l,
		notifier:   &recordingNotifier{},
		rewarder:   &fakeRewarder{failFor: map[string]bool{}},
		partitions: partition.NewInMemoryRegistry(),
		recorder:   &fakeRecorder{},
		clock:      &fakeClock{t: time.Unix(1_700_000_000, 0)},
	}
	tokens := 0
	f.ctrl = NewController(NewControllerOptions{
		Logger:     zaptest.NewLogger(t),
		Notifier:   f.notifier,
		Rewarder:   f.rewarder,
		Partitions: f.partitions,
		Recorder:   f.recorder,
		Runner:     &workers.Inline{},
		Rewards:    Rewards{Kill: 10, Completion: 50, Win: 100},
		Now:        f.clock.Now,
		NewToken: func() string {
			tokens++
			return "session-" + string(rune('0'+tokens))
		},
		Schedule: func(token string) func() {
			f.scheduled = append(f.scheduled, token)
			return func() { f.stopped++ }
		},
	})
	return f
}

func TestBegin_IsolatesPlayersAndSchedulesTimer(t *testing.T) {
	f := newFixture(t, 20, 5, "p2")

	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	assert.Equal(t, Running, f.ctrl.State())
	assert.True(t, f.lobby.Started)
	assert.Equal(t, []string{"p1", "p2"}, f.partitions.Members(session.Token))
	assert.Equal(t, []string{session.Token}, f.scheduled)

	_, err = f.ctrl.Begin(f.lobby)
	require.ErrorIs(t, err, ErrNotIdle)
}

func TestBegin_NoTimerWithoutTimeLimit(t *testing.T) {
	f := newFixture(t, 20, 0, "p2")
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	assert.Empty(t, f.scheduled)
	_, ok := f.ctrl.Remaining()
	assert.False(t, ok)
}

func TestRecordDeath_IgnoredWhenIdleOrUnknownVictim(t *testing.T) {
	f := newFixture(t, 20, 0, "p2")
	assert.False(t, f.ctrl.RecordDeath("p2", "p1"))
	assert.Zero(t, f.lobby.Roster["p2"].Deaths)

	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	assert.False(t, f.ctrl.RecordDeath("ghost", "p1"))
	assert.Zero(t, f.lobby.Roster["p1"].Kills)
}

func TestRecordDeath_SuicideAndUnknownKillerCountOnlyDeath(t *testing.T) {
	f := newFixture(t, 20, 0, "p2")
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	f.ctrl.RecordDeath("p2", "p2")
	f.ctrl.RecordDeath("p2", "offline-player")
	f.ctrl.RecordDeath("p2", "")

	assert.Equal(t, 3, f.lobby.Roster["p2"].Deaths)
	assert.Zero(t, f.lobby.Roster["p2"].Kills)
	assert.Len(t, f.notifier.ofType(wire.ScoreboardUpdated), 3)
	assert.Empty(t, f.rewarder.paid)
}

func TestRecordDeath_ScoreboardIsPureFunctionOfRoster(t *testing.T) {
	f := newFixture(t, 100, 0, "p2", "p3", "p4")
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	deaths := [][2]string{{"p2", "p1"}, {"p4", "p3"}, {"p1", "p2"}, {"p3", "p4"}, {"p2", "p3"}, {"p1", ""}}
	for _, d := range deaths {
		f.ctrl.RecordDeath(d[0], d[1])
		board := f.lobby.Scoreboard()
		sums := map[engine.Team]int{}
		for _, line := range board.Players {
			sums[line.Team] += line.Kills
		}
		require.Equal(t, sums[engine.TeamRed], board.TeamKills[engine.TeamRed])
		require.Equal(t, sums[engine.TeamBlue], board.TeamKills[engine.TeamBlue])
	}
}

func TestKillLimitScenario(t *testing.T) {
	f := newFixture(t, 20, 0, "p2")
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	var ended bool
	for i := 0; i < 20; i++ {
		ended = f.ctrl.RecordDeath("p2", "p1")
	}
	require.True(t, ended)

	results := f.notifier.ofType(wire.MatchEnded)
	require.Len(t, results, 1)
	msg := results[0].msg
	assert.Equal(t, string(engine.TeamRed), msg.Winner)
	assert.Equal(t, wire.ReasonKillLimit, msg.Reason)
	assert.Equal(t, map[engine.Team]int{engine.TeamRed: 20, engine.TeamBlue: 0}, msg.Scoreboard.TeamKills)
	assert.ElementsMatch(t, []string{"p1", "p2"}, results[0].to)

	for _, p := range f.lobby.Roster {
		assert.Zero(t, p.Kills)
		assert.Zero(t, p.Deaths)
	}
	assert.Equal(t, Idle, f.ctrl.State())
	assert.False(t, f.lobby.Started)
	assert.Len(t, f.lobby.Roster, 2)

	// 20 kills + completion + win for p1, completion only for p2.
	assert.EqualValues(t, 20*10+50+100, f.rewarder.paid["p1"])
	assert.EqualValues(t, 50, f.rewarder.paid["p2"])

	require.Len(t, f.recorder.records, 1)
	assert.Equal(t, engine.TeamRed, f.recorder.records[0].Winner)
}

func TestTimeLimitScenario_TieAfterFiveTicks(t *testing.T) {
	f := newFixture(t, 20, 5, "p2")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		f.clock.Advance(time.Second)
		require.False(t, f.ctrl.Tick(session.Token), "tick %d", i)
	}
	f.clock.Advance(time.Second)
	require.True(t, f.ctrl.Tick(session.Token))

	timers := f.notifier.ofType(wire.TimerUpdated)
	require.Len(t, timers, 5)
	assert.Equal(t, 4, *timers[0].msg.Remaining)
	assert.Equal(t, 0, *timers[4].msg.Remaining)

	results := f.notifier.ofType(wire.MatchEnded)
	require.Len(t, results, 1)
	assert.Equal(t, wire.Tie, results[0].msg.Winner)
	assert.Equal(t, wire.ReasonTimeLimit, results[0].msg.Reason)
	assert.Equal(t, 1, f.stopped)
}

func TestTick_UsesWallClockNotTickCount(t *testing.T) {
	f := newFixture(t, 20, 5, "p2")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	f.clock.Advance(7 * time.Second)
	require.True(t, f.ctrl.Tick(session.Token))
	timers := f.notifier.ofType(wire.TimerUpdated)
	require.Len(t, timers, 1)
	assert.Equal(t, 0, *timers[0].msg.Remaining)
}

func TestTimeLimit_LeaderWins(t *testing.T) {
	f := newFixture(t, 20, 1, "p2")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	f.ctrl.RecordDeath("p1", "p2")
	f.clock.Advance(time.Second)
	require.True(t, f.ctrl.Tick(session.Token))

	results := f.notifier.ofType(wire.MatchEnded)
	require.Len(t, results, 1)
	assert.Equal(t, string(engine.TeamBlue), results[0].msg.Winner)
}

func TestTick_StaleTokenIgnored(t *testing.T) {
	f := newFixture(t, 20, 5, "p2")
	first, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	require.True(t, f.ctrl.Settle(wire.ReasonHostLeft))

	second, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	f.clock.Advance(10 * time.Second)
	assert.False(t, f.ctrl.Tick(first.Token))
	assert.Equal(t, Running, f.ctrl.State())
}

func TestSettle_IsIdempotent(t *testing.T) {
	f := newFixture(t, 20, 0, "p2")
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	assert.True(t, f.ctrl.Settle(wire.ReasonHostLeft))
	assert.False(t, f.ctrl.Settle(wire.ReasonHostLeft))
	assert.Len(t, f.notifier.ofType(wire.MatchEnded), 1)
	assert.Len(t, f.recorder.records, 1)
}

func TestSettle_HostLeftIsTieAndClearsPartitions(t *testing.T) {
	f := newFixture(t, 20, 0, "p2", "p3", "p4")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	// host p1 and p3 are red
	for i := 0; i < 5; i++ {
		f.ctrl.RecordDeath("p2", "p1")
	}
	for i := 0; i < 3; i++ {
		f.ctrl.RecordDeath("p1", "p2")
	}

	require.True(t, f.ctrl.Settle(wire.ReasonHostLeft))

	results := f.notifier.ofType(wire.MatchEnded)
	require.Len(t, results, 1)
	assert.Equal(t, wire.Tie, results[0].msg.Winner)
	assert.Equal(t, 5, results[0].msg.Scoreboard.TeamKills[engine.TeamRed])
	assert.Equal(t, 3, results[0].msg.Scoreboard.TeamKills[engine.TeamBlue])
	assert.Empty(t, f.partitions.Members(session.Token))
	_, ok := f.ctrl.Session()
	assert.False(t, ok)
}

func TestSettle_RewardFailureIsIsolated(t *testing.T) {
	f := newFixture(t, 1, 0, "p2")
	f.rewarder.failFor["p1"] = true
	_, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	require.True(t, f.ctrl.RecordDeath("p2", "p1"))

	assert.EqualValues(t, 50, f.rewarder.paid["p2"])
	assert.Equal(t, Idle, f.ctrl.State())
	notices := f.notifier.ofType(wire.Notice)
	require.NotEmpty(t, notices)
	for _, n := range notices {
		assert.Equal(t, []string{"p1"}, n.to)
		assert.Contains(t, n.msg.Reason, engine.ReasonOf(engine.ErrHookFailed))
	}
}

func TestRelease_ReturnsLeaverToSharedWorld(t *testing.T) {
	f := newFixture(t, 20, 0, "p2", "p3")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	f.ctrl.Release("p3")
	assert.Equal(t, partition.SharedWorld, f.partitions.PartitionOf("p3"))
	assert.Equal(t, []string{"p1", "p2"}, f.partitions.Members(session.Token))
}

func TestSettings_ChangedMidMatchApplyToNextMatch(t *testing.T) {
	f := newFixture(t, 2, 0, "p2")
	rules := engine.Rules{WeaponCount: 1}
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	assert.Equal(t, 2, session.KillLimit)
	assert.Equal(t, 0, session.TimeLimit)

	one, five := 1, 5
	require.NoError(t, f.lobby.UpdateSettings("p1", engine.SettingsPatch{KillLimit: &one, TimeLimit: &five}, rules))

	f.clock.Advance(60 * time.Second)
	_, ok := f.ctrl.Remaining()
	assert.False(t, ok)
	assert.False(t, f.ctrl.Tick(session.Token))
	assert.Empty(t, f.scheduled)

	require.NotEqual(t, f.lobby.Roster["p1"].Team, f.lobby.Roster["p2"].Team)
	assert.False(t, f.ctrl.RecordDeath("p1", "p2"), "kill limit is still the one the match began with")
	assert.True(t, f.ctrl.RecordDeath("p1", "p2"))
	assert.Equal(t, Idle, f.ctrl.State())

	next, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)
	assert.Equal(t, 1, next.KillLimit)
	assert.Equal(t, 5, next.TimeLimit)
	assert.Equal(t, []string{next.Token}, f.scheduled)
}

func TestSettings_ClearingTimeLimitMidMatchKeepsCountdown(t *testing.T) {
	f := newFixture(t, 20, 5, "p2")
	session, err := f.ctrl.Begin(f.lobby)
	require.NoError(t, err)

	zero := 0
	require.NoError(t, f.lobby.UpdateSettings("p1", engine.SettingsPatch{TimeLimit: &zero}, engine.Rules{WeaponCount: 1}))

	f.clock.Advance(5 * time.Second)
	require.True(t, f.ctrl.Tick(session.Token))
	ended := f.notifier.ofType(wire.MatchEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, wire.ReasonTimeLimit, ended[0].msg.Reason)
}

// slowIsolation delays entering a match partition so a release queued right
// behind it would overtake it if the two were not ordered.
type slowIsolation struct {
	*partition.InMemoryRegistry
	delay time.Duration
}

func (s slowIsolation) SetPartition(ctx context.Context, id, token string) error {
	if token != partition.SharedWorld {
		time.Sleep(s.delay)
	}
	return s.InMemoryRegistry.SetPartition(ctx, id, token)
}

func TestSettle_ClearsPartitionsWithAsyncDispatcher(t *testing.T) {
	rules := engine.Rules{MaxPlayers: 8, DefaultKillLimit: 30, WeaponCount: 1}
	for i := 0; i < 50; i++ {
		l, err := engine.Open(nil, "p1", "P1", engine.SettingsPatch{}, rules)
		require.NoError(t, err)
		_, err = l.Join("p2", "P2", rules)
		require.NoError(t, err)

		registry := partition.NewInMemoryRegistry()
		d := workers.NewDispatcher(context.Background(), workers.NewDispatcherOptions{Limit: 4})
		ctrl := NewController(NewControllerOptions{
			Notifier:   &recordingNotifier{},
			Partitions: slowIsolation{InMemoryRegistry: registry, delay: time.Millisecond},
			Runner:     d,
		})

		_, err = ctrl.Begin(l)
		require.NoError(t, err)
		require.True(t, ctrl.Settle(wire.ReasonHostLeft))
		require.NoError(t, d.Wait())

		assert.Equal(t, partition.SharedWorld, registry.PartitionOf("p1"))
		assert.Equal(t, partition.SharedWorld, registry.PartitionOf("p2"))
	}
}
