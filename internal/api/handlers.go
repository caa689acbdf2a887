package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	"arena-survival/internal/game"
)

// errBadCommand marks a request that cannot become a simulation command.
var errBadCommand = errors.New("bad command")

// controlRequest is the body of every command endpoint and websocket
// command message. Each command reads only the fields it needs.
type controlRequest struct {
	Type    string  `json:"type,omitempty"`
	MoveX   float64 `json:"moveX"`
	MoveY   float64 `json:"moveY"`
	Dash    bool    `json:"dash"`
	Level   int     `json:"level"`
	Index   int     `json:"index"`
	Enabled *bool   `json:"enabled,omitempty"`
}

type commandBuilder func(req controlRequest) (game.Command, error)

func cmdInput(req controlRequest) (game.Command, error) {
	if !finite(req.MoveX) || !finite(req.MoveY) {
		return game.Command{}, fmt.Errorf("%w: movement must be finite", errBadCommand)
	}
	return game.Command{Kind: game.CmdInput, Input: game.Input{MoveX: req.MoveX, MoveY: req.MoveY, Dash: req.Dash}}, nil
}

func cmdPause(controlRequest) (game.Command, error)  { return game.Command{Kind: game.CmdPause}, nil }
func cmdResume(controlRequest) (game.Command, error) { return game.Command{Kind: game.CmdResume}, nil }
func cmdReset(controlRequest) (game.Command, error)  { return game.Command{Kind: game.CmdReset}, nil }
func cmdBoss(controlRequest) (game.Command, error)   { return game.Command{Kind: game.CmdSpawnBoss}, nil }

func cmdQuality(req controlRequest) (game.Command, error) {
	if req.Level < game.MinQuality || req.Level > game.MaxQuality {
		return game.Command{}, fmt.Errorf("%w: level must be %d..%d", errBadCommand, game.MinQuality, game.MaxQuality)
	}
	return game.Command{Kind: game.CmdSetQuality, Value: req.Level}, nil
}

func cmdUpgrade(req controlRequest) (game.Command, error) {
	if req.Index < 0 {
		return game.Command{}, fmt.Errorf("%w: index must not be negative", errBadCommand)
	}
	return game.Command{Kind: game.CmdChooseUpgrade, Value: req.Index}, nil
}

func cmdAutoPick(req controlRequest) (game.Command, error) {
	if req.Enabled == nil {
		return game.Command{}, fmt.Errorf("%w: enabled is required", errBadCommand)
	}
	return game.Command{Kind: game.CmdSetAutoPick, Flag: *req.Enabled}, nil
}

func cmdSpawning(req controlRequest) (game.Command, error) {
	if req.Enabled == nil {
		return game.Command{}, fmt.Errorf("%w: enabled is required", errBadCommand)
	}
	return game.Command{Kind: game.CmdSetSpawning, Flag: *req.Enabled}, nil
}

// commandsByType maps websocket message types to builders.
var commandsByType = map[string]commandBuilder{
	"input":    cmdInput,
	"pause":    cmdPause,
	"resume":   cmdResume,
	"reset":    cmdReset,
	"quality":  cmdQuality,
	"upgrade":  cmdUpgrade,
	"autopick": cmdAutoPick,
	"spawning": cmdSpawning,
	"boss":     cmdBoss,
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Handler methods for routerHandlers

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := h.sim.Snapshot()
	if snap == nil {
		writeError(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("format") == "msgpack" {
		writeMsgpack(w, snap)
		return
	}
	writeJSON(w, snap)
}

func (h *routerHandlers) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sim.PlayerStats())
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	weapons := h.sim.WeaponStates()
	if weapons == nil {
		weapons = []game.WeaponState{}
	}
	writeJSON(w, weapons)
}

func (h *routerHandlers) handleGetPassives(w http.ResponseWriter, r *http.Request) {
	passives := h.sim.PassiveStates()
	if passives == nil {
		passives = []game.PassiveState{}
	}
	writeJSON(w, passives)
}

func (h *routerHandlers) handleGetQuality(w http.ResponseWriter, r *http.Request) {
	level, settings := h.sim.Quality()
	writeJSON(w, map[string]interface{}{
		"level":    level,
		"settings": settings,
	})
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sim.EventLogStats())
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "frame rendering disabled", http.StatusNotFound)
		return
	}
	snap := h.sim.Snapshot()
	if snap == nil {
		writeError(w, "no snapshot published yet", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.EncodePNG(&buf, snap); err != nil {
		h.log.Error().Err(err).Msg("❌ Frame render failed")
		writeError(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// handleCommand decodes an optional JSON body and queues the command.
func (h *routerHandlers) handleCommand(build commandBuilder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req controlRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}

		cmd, err := build(req)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.sim.Enqueue(cmd); err != nil {
			h.writeEnqueueError(w, cmd, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"queued": cmd.Kind.String()})
	}
}

func (h *routerHandlers) writeEnqueueError(w http.ResponseWriter, cmd game.Command, err error) {
	if errors.Is(err, game.ErrCommandQueueFull) {
		h.log.Warn().Str("command", cmd.Kind.String()).Msg("⚠️ Command queue full")
		w.Header().Set("Retry-After", "1")
		writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeError(w, err.Error(), http.StatusInternalServerError)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// writeMsgpack encodes with the json field names so both formats share one
// schema.
func writeMsgpack(w http.ResponseWriter, data interface{}) {
	b, err := encodeMsgpack(data)
	if err != nil {
		writeError(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	w.Write(b)
}

func encodeMsgpack(data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
