package handler

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"securedoc/internal/session"
)

// signalFrame is an inbound websocket frame from the viewer page.
type signalFrame struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

// sessionSocket runs one security session over a websocket connection. The
// socket carries signal frames in and state projection frames out; all
// security decisions stay on this side of the wire.
func sessionSocket(d Deps) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		secureID := conn.Params("secureId")
		log := d.Log.With(zap.String("secure_id", secureID))

		// The fiber request context dies on upgrade; the session lives as
		// long as the socket does.
		ctx := context.Background()

		doc, err := d.Docs.View(ctx, secureID)
		if err != nil {
			// The viewer page treats an expired frame as a hard stop.
			_ = conn.WriteJSON(session.Update{
				Type:  session.UpdateExpired,
				State: session.StateExpired,
			})
			return
		}

		sess := session.New(secureID, doc.ExpireAt, d.Judge, d.Revoker, session.Config{
			WarnRevert:   d.Security.WarnRevert,
			TickInterval: d.Security.TickInterval,
		}, d.Log)
		sess.Start(ctx)
		defer sess.Close()

		d.Metrics.SessionsStarted.Inc()
		log.Info("security session started")

		// Reader: signal frames append to the session's event log in
		// arrival order. A read error (navigation away, socket drop) tears
		// the session down.
		go func() {
			for {
				var f signalFrame
				if err := conn.ReadJSON(&f); err != nil {
					sess.Close()
					return
				}
				if f.Type == "signal" && f.Label != "" {
					sess.Signal(f.Label)
				}
			}
		}()

		// Writer: the session's update channel closes when the run loop
		// stops, terminal state or not.
		for u := range sess.Updates() {
			if err := conn.WriteJSON(u); err != nil {
				return
			}
			switch u.Type {
			case session.UpdateWarning:
				d.Metrics.Verdicts.WithLabelValues("WARNING").Inc()
			case session.UpdateTerminated:
				d.Metrics.Verdicts.WithLabelValues("TERMINATE").Inc()
				d.Metrics.Revocations.Inc()
				log.Warn("security session terminated", zap.String("reason", u.Reason))
			case session.UpdateExpired:
				log.Info("security session expired")
			}
		}
	}
}
