package signal

import (
	"encoding/json"
	"errors"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/dkeye/Ring/internal/metrics"
)

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn core.SignalConnection,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required,max=64"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	room := domain.RoomID(p.Room)
	res, err := ctl.Orch.JoinRoom(sid, room)
	if err != nil {
		if errors.Is(err, domain.ErrRoomFull) {
			log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("room full")
			ctl.sendJSON(conn, struct {
				Type string        `json:"type"`
				Room domain.RoomID `json:"room"`
			}{
				Type: "full",
				Room: room,
			})
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.Room).Msg("join failed")
		return
	}

	ctl.sendJSON(conn, struct {
		Type    string        `json:"type"`
		Room    domain.RoomID `json:"room"`
		IsFirst bool          `json:"isFirst"`
	}{
		Type:    "joined",
		Room:    room,
		IsFirst: res.IsFirst,
	})
	for _, peer := range res.Peers {
		ctl.sendJSON(peer, struct {
			Type string        `json:"type"`
			Room domain.RoomID `json:"room"`
		}{
			Type: "peer-connected",
			Room: room,
		})
	}
}

// handleRoomRelay forwards offer/answer/ice-candidate payloads to every other
// occupant of the room. Payload shape is checked against the pion types so a
// malformed blob is rejected here instead of breaking the peer.
func (ctl *SignalWSController) handleRoomRelay(
	sid core.SessionID,
	conn core.SignalConnection,
	kind string,
	data []byte,
) {
	type relayPayload struct {
		Type    string          `json:"type"`
		Room    string          `json:"room" validate:"required,max=64"`
		Payload json.RawMessage `json:"payload" validate:"required"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	switch kind {
	case "ice-candidate":
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(p.Payload, &ci); err != nil || ci.Candidate == "" {
			log.Error().Err(err).Str("module", "signal").Msg("bad ice candidate")
			ctl.sendError(conn, "bad_payload")
			return
		}
	case "offer", "answer":
		var sd webrtc.SessionDescription
		if err := json.Unmarshal(p.Payload, &sd); err != nil || sd.SDP == "" {
			log.Error().Err(err).Str("module", "signal").Msg("bad session description")
			ctl.sendError(conn, "bad_payload")
			return
		}
	}

	resp := struct {
		Type    string          `json:"type"`
		Room    string          `json:"room"`
		Payload json.RawMessage `json:"payload"`
	}{
		Type:    kind,
		Room:    p.Room,
		Payload: p.Payload,
	}
	for _, peer := range ctl.Orch.RoomPeers(sid, domain.RoomID(p.Room)) {
		ctl.sendJSON(peer, resp)
		ctl.Orch.Metrics.Inc(metrics.EventRelayForwarded)
	}
}
