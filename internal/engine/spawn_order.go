package engine

type SpawnPoint struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Heading float64 `json:"heading"`
}

type Weapon struct {
	Label      string `json:"label"`
	Identifier string `json:"identifier"`
	Ammo       int    `json:"ammo"`
}

// AssignSpawns walks the roster in id order and hands each player the next
// spawn point of their team, wrapping when players outnumber points. Players
// whose team has no spawn points are left out.
func AssignSpawns(l *Lobby, spawns map[Team][]SpawnPoint) map[string]SpawnPoint {
	out := make(map[string]SpawnPoint)
	next := map[Team]int{}
	for _, id := range l.Members() {
		p := l.Roster[id]
		points := spawns[p.Team]
		if len(points) == 0 {
			continue
		}
		out[id] = points[next[p.Team]%len(points)]
		next[p.Team]++
	}
	return out
}
