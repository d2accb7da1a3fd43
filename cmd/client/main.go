// Command client is a terminal client for the deathmatch server. It keeps a
// local match view and logs the presentation effects a game client would run.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	"github.com/DoyleJ11/deathmatch-backend/internal/view"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// logPresentation stands in for the game client's local effects.
type logPresentation struct {
	logger *zap.Logger
}

func (p logPresentation) EquipWeapon(w engine.Weapon) {
	p.logger.Info("equip weapon", zap.String("weapon", w.Identifier), zap.Int("ammo", w.Ammo))
}

func (p logPresentation) Teleport(s engine.SpawnPoint) {
	p.logger.Info("teleport", zap.Float64("x", s.X), zap.Float64("y", s.Y), zap.Float64("z", s.Z), zap.Float64("heading", s.Heading))
}

func (p logPresentation) SetInvincible(on bool) {
	p.logger.Info("set invincible", zap.Bool("on", on))
}

func (p logPresentation) RestoreDefaults() {
	p.logger.Info("restore defaults")
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "server websocket url")
	name := flag.String("name", "", "display name")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	u, err := url.Parse(*addr)
	if err != nil {
		logger.Fatal("invalid addr", zap.Error(err))
	}
	if *name != "" {
		q := u.Query()
		q.Set("name", *name)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		logger.Fatal("failed to dial", zap.Error(err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mv := view.New(logPresentation{logger: logger.Named("present")}, logger)
	go readLoop(ctx, conn, mv, logger)

	fmt.Println("commands: create [kill] [time] [weapon] | join | team red|blue | settings kill time weapon | start | death [killer] | leave | disband | state | quit")
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if line == "quit" {
			return
		}
		if line == "state" {
			printState(mv.Snapshot())
			continue
		}
		msg, err := parseCommand(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			logger.Error("failed to marshal", zap.Error(err))
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			logger.Error("write failed", zap.Error(err))
			return
		}
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, mv *view.ClientMatchView, logger *zap.Logger) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			logger.Info("connection closed", zap.Error(err))
			os.Exit(0)
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("bad server message", zap.Error(err))
			continue
		}
		logger.Debug("recv", zap.String("type", msg.Type), zap.ByteString("raw", data))
		mv.Apply(msg)
	}
}

func parseCommand(line string) (types.ClientMessage, error) {
	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case "create":
		m := types.ClientMessage{Type: wire.CreateLobby}
		if err := fillSettings(&m, args); err != nil {
			return types.ClientMessage{}, err
		}
		return m, nil
	case "join":
		return types.ClientMessage{Type: wire.JoinLobby}, nil
	case "team":
		if len(args) != 1 {
			return types.ClientMessage{}, fmt.Errorf("usage: team red|blue")
		}
		return types.ClientMessage{Type: wire.SetTeam, Team: args[0]}, nil
	case "settings":
		m := types.ClientMessage{Type: wire.UpdateSettings}
		if err := fillSettings(&m, args); err != nil {
			return types.ClientMessage{}, err
		}
		return m, nil
	case "start":
		return types.ClientMessage{Type: wire.StartMatch}, nil
	case "death":
		m := types.ClientMessage{Type: wire.ReportDeath}
		if len(args) > 0 {
			m.KillerID = args[0]
		}
		return m, nil
	case "leave":
		return types.ClientMessage{Type: wire.LeaveLobby}, nil
	case "disband":
		return types.ClientMessage{Type: wire.DisbandLobby}, nil
	default:
		return types.ClientMessage{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// fillSettings reads positional kill, time and weapon values. "-" skips one.
func fillSettings(m *types.ClientMessage, args []string) error {
	targets := []**int{&m.KillLimit, &m.TimeLimit, &m.WeaponIndex}
	if len(args) > len(targets) {
		return fmt.Errorf("too many settings")
	}
	for i, a := range args {
		if a == "-" {
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("invalid number %q", a)
		}
		*targets[i] = &n
	}
	return nil
}

func printState(s view.State) {
	fmt.Printf("me=%s lobby=%v host=%s team=%s started=%v remaining=%ds last=%s\n",
		s.PlayerID, s.InLobby, s.Host, s.Team, s.Started, s.Remaining, s.LastResult)
	fmt.Printf("settings: kills=%d time=%ds weapon=%d\n", s.Settings.KillLimit, s.Settings.TimeLimit, s.Settings.WeaponIndex)
	for _, p := range s.Scoreboard.Players {
		fmt.Printf("  %-5s %-16s %3d/%d\n", p.Team, p.Name, p.Kills, p.Deaths)
	}
}
