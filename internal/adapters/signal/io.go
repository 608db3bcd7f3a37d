package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/metrics"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.handleDisconnect(sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleSignal(sid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "register":
		ctl.handleRegister(sid, c, data)
	case "callUser":
		ctl.handleCallUser(sid, c, data)
	case "acceptCall":
		ctl.handleAcceptCall(sid, c, data)
	case "declineCall":
		ctl.handleFinishCall(sid, c, data, "callDeclined")
	case "endCall":
		ctl.handleFinishCall(sid, c, data, "callEnded")
	case "join":
		ctl.handleJoin(sid, c, data)
	case "offer", "answer", "ice-candidate":
		ctl.handleRoomRelay(sid, c, env.Type, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// handleDisconnect reconciles state after connection loss and notifies
// everyone affected: the call counterpart, room peers, and the roster.
func (ctl *SignalWSController) handleDisconnect(sid core.SessionID) {
	res := ctl.Orch.Disconnect(sid)

	if res.CallPeer != nil {
		ctl.sendJSON(res.CallPeer, map[string]any{"type": "callEnded"})
	}
	for _, peer := range res.RoomPeers {
		ctl.sendJSON(peer, map[string]any{"type": "peer-disconnected"})
	}
	if res.WasRegistered {
		ctl.broadcastRoster(res.Roster)
	}
}

func (ctl *SignalWSController) broadcastRoster(up core.RosterUpdate) {
	event := struct {
		Type  string             `json:"type"`
		Users []core.PresenceDTO `json:"users"`
	}{
		Type:  "users",
		Users: up.Users,
	}
	b, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("roster marshal")
		return
	}
	for _, t := range up.Targets {
		if err := t.Conn.TrySend(b); err != nil {
			ctl.Orch.ReportBackpressure(t.SID)
		}
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c core.SignalConnection, reason string) {
	ctl.Orch.Metrics.Inc(metrics.EventBadPayload)
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": reason,
	})
}
