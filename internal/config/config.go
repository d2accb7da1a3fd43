package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/joho/godotenv"
)

type Rewards struct {
	Kill       int64 `json:"kill"`
	Completion int64 `json:"completion"`
	Win        int64 `json:"win"`
}

// GameTables are the externally configured catalogs.
type GameTables struct {
	Weapons []engine.Weapon                     `json:"weapons"`
	Spawns  map[engine.Team][]engine.SpawnPoint `json:"spawns"`
	Rewards Rewards                             `json:"rewards"`
}

type Config struct {
	Addr             string
	LogLevel         string
	DatabaseURL      string
	MaxPlayers       int
	DefaultKillLimit int
	DefaultTimeLimit int
	DefaultWeapon    int
	TickInterval     time.Duration
	Tables           GameTables
}

func (c Config) Rules() engine.Rules {
	return engine.Rules{
		MaxPlayers:       c.MaxPlayers,
		DefaultKillLimit: c.DefaultKillLimit,
		DefaultTimeLimit: c.DefaultTimeLimit,
		DefaultWeapon:    c.DefaultWeapon,
		WeaponCount:      len(c.Tables.Weapons),
	}
}

// Load reads .env files (if any), then the environment, then the JSON game
// tables named by GAME_CONFIG. Missing tables fall back to DefaultTables.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return Config{}, fmt.Errorf("failed to load env files: %w", err)
	}

	var err error
	c := Config{
		Addr:        getEnv("ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if c.MaxPlayers, err = getInt("MAX_PLAYERS", 16); err != nil {
		return Config{}, err
	}
	if c.DefaultKillLimit, err = getInt("DEFAULT_KILL_LIMIT", 30); err != nil {
		return Config{}, err
	}
	if c.DefaultTimeLimit, err = getInt("DEFAULT_TIME_LIMIT", 600); err != nil {
		return Config{}, err
	}
	if c.DefaultWeapon, err = getInt("DEFAULT_WEAPON", 0); err != nil {
		return Config{}, err
	}
	if c.TickInterval, err = time.ParseDuration(getEnv("TICK_INTERVAL", "1s")); err != nil {
		return Config{}, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}
	if c.MaxPlayers < 2 {
		return Config{}, fmt.Errorf("MAX_PLAYERS must be at least 2, got %d", c.MaxPlayers)
	}
	if c.DefaultKillLimit <= 0 {
		return Config{}, fmt.Errorf("DEFAULT_KILL_LIMIT must be positive, got %d", c.DefaultKillLimit)
	}
	if c.DefaultTimeLimit < 0 {
		return Config{}, fmt.Errorf("DEFAULT_TIME_LIMIT must not be negative, got %d", c.DefaultTimeLimit)
	}

	c.Tables = DefaultTables()
	if path := os.Getenv("GAME_CONFIG"); path != "" {
		if c.Tables, err = LoadTables(path); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

// LoadTables reads the game tables from a JSON file.
func LoadTables(path string) (GameTables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameTables{}, fmt.Errorf("failed to read game config: %w", err)
	}

	var t GameTables
	if err := json.Unmarshal(data, &t); err != nil {
		return GameTables{}, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if len(t.Weapons) == 0 {
		return GameTables{}, fmt.Errorf("game config %s has no weapons", path)
	}
	return t, nil
}

func DefaultTables() GameTables {
	return GameTables{
		Weapons: []engine.Weapon{
			{Label: "Pistol", Identifier: "WEAPON_PISTOL", Ammo: 250},
			{Label: "Combat Pistol", Identifier: "WEAPON_COMBATPISTOL", Ammo: 250},
			{Label: "SMG", Identifier: "WEAPON_SMG", Ammo: 500},
			{Label: "Assault Rifle", Identifier: "WEAPON_ASSAULTRIFLE", Ammo: 500},
			{Label: "Pump Shotgun", Identifier: "WEAPON_PUMPSHOTGUN", Ammo: 100},
		},
		Spawns: map[engine.Team][]engine.SpawnPoint{
			engine.TeamRed: {
				{X: 1010.5, Y: -3101.2, Z: -38.9, Heading: 90},
				{X: 1012.8, Y: -3105.6, Z: -38.9, Heading: 90},
				{X: 1008.1, Y: -3108.3, Z: -38.9, Heading: 90},
			},
			engine.TeamBlue: {
				{X: 1061.9, Y: -3098.4, Z: -38.9, Heading: 270},
				{X: 1064.2, Y: -3102.7, Z: -38.9, Heading: 270},
				{X: 1059.6, Y: -3106.1, Z: -38.9, Heading: 270},
			},
		},
		Rewards: Rewards{Kill: 100, Completion: 250, Win: 500},
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
