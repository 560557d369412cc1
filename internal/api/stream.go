package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	streamIdleTimeout  = 60 * time.Second
	streamWriteTimeout = 10 * time.Second
)

type streamReply struct {
	*Prediction
	Error string `json:"error,omitempty"`
}

// handleStream upgrades to a websocket. Every text message is one
// /predict body and gets exactly one reply, in order.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx := r.Context()
	reqID := RequestIDFromContext(ctx)
	log.Debug().Str("request_id", reqID).Msg("Prediction stream opened")

	for seq := 1; ; seq++ {
		if err := conn.SetReadDeadline(time.Now().Add(streamIdleTimeout)); err != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, websocket.ErrCloseSent) {
				log.Debug().Err(err).Str("request_id", reqID).Msg("Prediction stream closed")
			}
			return
		}

		msgCtx := WithRequestID(ctx, fmt.Sprintf("%s/%d", reqID, seq))
		var reply streamReply
		pred, err := s.predict(msgCtx, msg)
		if err != nil {
			reply.Error = errorMessage(err)
		} else {
			reply.Prediction = &pred
		}

		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Debug().Err(err).Str("request_id", reqID).Msg("Prediction stream write failed")
			return
		}
	}
}
