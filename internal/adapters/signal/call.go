package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Ring/internal/core"
	"github.com/dkeye/Ring/internal/domain"
	"github.com/dkeye/Ring/internal/metrics"
)

func (ctl *SignalWSController) handleRegister(
	sid core.SessionID,
	conn core.SignalConnection,
	data []byte,
) {
	type registerPayload struct {
		Type     string `json:"type"`
		UserID   string `json:"userId" validate:"required,max=64"`
		UserName string `json:"userName" validate:"required,max=64"`
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad register payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid register payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	id, err := domain.NewIdentity(p.UserID, p.UserName)
	if err != nil {
		ctl.sendError(conn, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).
		Str("user", p.UserID).Str("name", p.UserName).Msg("register")
	up, ok := ctl.Orch.Register(sid, id)
	if !ok {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("register on unbound session")
		return
	}
	ctl.broadcastRoster(up)
}

func (ctl *SignalWSController) handleCallUser(
	sid core.SessionID,
	conn core.SignalConnection,
	data []byte,
) {
	type callPayload struct {
		Type        string          `json:"type"`
		To          string          `json:"to" validate:"required,max=64"`
		From        string          `json:"from" validate:"omitempty,max=64"`
		Signal      json.RawMessage `json:"signal" validate:"required"`
		IsAudioOnly bool            `json:"isAudioOnly"`
	}
	var p callPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad callUser payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid callUser payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	caller, registered := ctl.Orch.Presence.IdentityOf(sid)
	if !registered {
		ctl.sendError(conn, "not_registered")
		return
	}
	if !ctl.limiter.Allow(caller.ID) {
		ctl.Orch.Metrics.Inc(metrics.EventRateLimited)
		ctl.sendJSON(conn, map[string]any{
			"type":  "error",
			"error": "rate_limited",
		})
		return
	}

	route, err := ctl.Orch.PlaceCall(sid, domain.UserID(p.To))
	switch {
	case errors.Is(err, domain.ErrBusy):
		ctl.sendJSON(conn, struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{
			Type:    "userBusy",
			Message: fmt.Sprintf("%s is on another call", p.To),
		})
		return
	case errors.Is(err, domain.ErrNotFound):
		// Inherited behavior: the caller is not told, only the log knows.
		return
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("callUser")
		return
	}

	resp := struct {
		Type        string          `json:"type"`
		From        domain.UserID   `json:"from"`
		CallerName  string          `json:"callerName,omitempty"`
		Signal      json.RawMessage `json:"signal"`
		IsAudioOnly bool            `json:"isAudioOnly,omitempty"`
	}{
		Type:        "incomingCall",
		From:        route.Caller.ID,
		CallerName:  route.Caller.Name,
		Signal:      p.Signal,
		IsAudioOnly: p.IsAudioOnly,
	}
	ctl.sendJSON(route.Target, resp)
}

func (ctl *SignalWSController) handleAcceptCall(
	sid core.SessionID,
	conn core.SignalConnection,
	data []byte,
) {
	type acceptPayload struct {
		Type   string          `json:"type"`
		To     string          `json:"to" validate:"required,max=64"`
		Signal json.RawMessage `json:"signal" validate:"required"`
	}
	var p acceptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad acceptCall payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid acceptCall payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	target, err := ctl.Orch.AcceptCall(domain.UserID(p.To))
	if err != nil {
		log.Info().Str("module", "signal").Str("sid", string(sid)).
			Str("to", p.To).Msg("acceptCall target gone, dropping")
		return
	}
	ctl.sendJSON(target, struct {
		Type   string          `json:"type"`
		Signal json.RawMessage `json:"signal"`
	}{
		Type:   "callAccepted",
		Signal: p.Signal,
	})
}

// handleFinishCall backs declineCall and endCall; they differ only in the
// notice the counterpart receives.
func (ctl *SignalWSController) handleFinishCall(
	sid core.SessionID,
	conn core.SignalConnection,
	data []byte,
	notice string,
) {
	type finishPayload struct {
		Type string `json:"type"`
		To   string `json:"to" validate:"required,max=64"`
	}
	var p finishPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad finish payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("invalid finish payload")
		ctl.sendError(conn, "bad_payload")
		return
	}

	if notice == "callDeclined" {
		ctl.Orch.Metrics.Inc(metrics.EventCallDeclined)
	} else {
		ctl.Orch.Metrics.Inc(metrics.EventCallEnded)
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).
		Str("to", p.To).Str("notice", notice).Msg("finish call")
	target, err := ctl.Orch.FinishCall(sid, domain.UserID(p.To))
	if err != nil {
		// Call state is already released; nobody left to notify.
		return
	}
	ctl.sendJSON(target, map[string]any{"type": notice})
}
