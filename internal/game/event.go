package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRunStart
	EventTypeEnemyKilled
	EventTypeBossSpawned
	EventTypeBossPhase
	EventTypeBossDefeated
	EventTypeLevelUp
	EventTypeEvolution
	EventTypeMerge
	EventTypeChest
	EventTypePlayerDeath
	EventTypeQualityChange
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	TickNum   uint64    `json:"tickNum"`   // Simulation tick this occurred in
	Source    string    `json:"source"`    // Emitting entity class (for rate limiting)
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeRunStart:
		return "run_start"
	case EventTypeEnemyKilled:
		return "enemy_killed"
	case EventTypeBossSpawned:
		return "boss_spawned"
	case EventTypeBossPhase:
		return "boss_phase"
	case EventTypeBossDefeated:
		return "boss_defeated"
	case EventTypeLevelUp:
		return "level_up"
	case EventTypeEvolution:
		return "evolution"
	case EventTypeMerge:
		return "merge"
	case EventTypeChest:
		return "chest"
	case EventTypePlayerDeath:
		return "player_death"
	case EventTypeQualityChange:
		return "quality_change"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// RunStartPayload marks a fresh run.
type RunStartPayload struct {
	RunID string `json:"runId"`
	Seed  int64  `json:"seed"`
}

// EnemyKilledPayload contains kill details
type EnemyKilledPayload struct {
	EnemyID  uint32  `json:"enemyId"`
	Behavior string  `json:"behavior"`
	Variant  string  `json:"variant"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// BossPayload is shared by spawn, phase and defeat events
type BossPayload struct {
	Tier    int     `json:"tier"`
	Variant string  `json:"variant"`
	Health  float64 `json:"health,omitempty"`
	Phase   int     `json:"phase,omitempty"`
}

// LevelUpPayload contains the new level
type LevelUpPayload struct {
	Level int `json:"level"`
}

// WeaponPayload describes an evolution or merge
type WeaponPayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Level int    `json:"level"`
}

// ChestPayload names the granted reward
type ChestPayload struct {
	Reward string `json:"reward"`
}

// PlayerDeathPayload contains the final run stats
type PlayerDeathPayload struct {
	Level     int `json:"level"`
	Kills     int `json:"kills"`
	BossKills int `json:"bossKills"`
}

// QualityPayload contains a quality level change
type QualityPayload struct {
	Level     int    `json:"level"`
	Direction string `json:"direction"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tickNum uint64, source string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		TickNum:   tickNum,
		Source:    source,
		Payload:   EncodePayload(payload),
	}
}
