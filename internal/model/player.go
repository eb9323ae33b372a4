package model

// EnginePlayerID occupies the engine's seat in a game against the computer.
const EnginePlayerID = "engine"

// Player is someone waiting in the matchmaking queue.
type Player struct {
	ID string
}

type ClientPlayer struct {
	ID       string `json:"name"`
	Color    Side   `json:"color"`
	IsEngine bool   `json:"isEngine"`
}

func (p ClientPlayer) seated() bool {
	return p.ID != ""
}
