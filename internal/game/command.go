package game

import "errors"

// Errors returned by the control surface.
var (
	ErrCommandQueueFull = errors.New("command queue full")
	ErrNoChoicePending  = errors.New("no upgrade choice pending")
	ErrInvalidChoice    = errors.New("invalid upgrade choice")
)

// CommandKind tags a collaborator request.
type CommandKind uint8

const (
	CmdInput CommandKind = iota
	CmdPause
	CmdResume
	CmdReset
	CmdSetQuality
	CmdChooseUpgrade
	CmdSpawnBoss
	CmdSetAutoPick
	CmdSetSpawning
)

// String returns the command tag for logs.
func (k CommandKind) String() string {
	switch k {
	case CmdInput:
		return "input"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdReset:
		return "reset"
	case CmdSetQuality:
		return "set_quality"
	case CmdChooseUpgrade:
		return "choose_upgrade"
	case CmdSpawnBoss:
		return "spawn_boss"
	case CmdSetAutoPick:
		return "set_auto_pick"
	case CmdSetSpawning:
		return "set_spawning"
	default:
		return "unknown"
	}
}

// Command is a request from another goroutine. It is applied at the next
// frame boundary, before any tick of that frame runs.
type Command struct {
	Kind  CommandKind
	Input Input
	Value int // quality level or offer index
	Flag  bool
}

// CommandQueueSize bounds the inbox.
const CommandQueueSize = 256
