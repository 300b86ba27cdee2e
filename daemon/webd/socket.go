package webd

import (
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/trackfix/catdb/cache"
	"github.com/rotblauer/trackfix/events"
	"github.com/rotblauer/trackfix/types/run"
)

type websocketAction string

var (
	websocketActionHello websocketAction = "hello"
	websocketActionRun   websocketAction = "run"
)

type broadcast struct {
	Action  websocketAction `json:"action"`
	Summary *run.Summary    `json:"summary,omitempty"`
}

// initMelody sets up the websocket handler.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	// New clients get a hello, then the cached last run of every trace.
	s.melodyInstance.HandleConnect(func(session *melody.Session) {
		s.logger.Info("Websocket connected", "remote", session.Request.RemoteAddr)
		b, _ := json.Marshal(broadcast{Action: websocketActionHello})
		_ = session.Write(b)
		for _, item := range cache.LastRunTTLCache.Items() {
			summary := item.Value().Summary()
			b, err := json.Marshal(broadcast{Action: websocketActionRun, Summary: &summary})
			if err != nil {
				continue
			}
			_ = session.Write(b)
		}
	})

	// Right now don't care about incoming messages from clients. Log and drop.
	s.melodyInstance.HandleMessage(func(session *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", session.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(session *melody.Session) {
		s.logger.Info("Websocket disconnected", "remote", session.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(session *melody.Session, e error) {
		s.logger.Warn("Websocket error", "remote", session.Request.RemoteAddr, "error", e)
	})

	// Broadcast a summary of every completed run, stored or not, to all connected clients.
	runs := make(chan *run.Run)
	s.runSub = events.RunFeed.Subscribe(runs)
	go func() {
		for {
			select {
			case r := <-runs:
				summary := r.Summary()
				b, err := json.Marshal(broadcast{Action: websocketActionRun, Summary: &summary})
				if err != nil {
					s.logger.Error("Failed to marshal run event", "error", err)
					continue
				}
				if err := s.melodyInstance.Broadcast(b); err != nil {
					s.logger.Warn("Failed to broadcast run event", "error", err)
				}
			case err := <-s.runSub.Err():
				if err != nil {
					s.logger.Error("Run feed subscription", "error", err)
				}
				return
			}
		}
	}()
}
