package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Stream message types, in the order a replay sends them.
const (
	MessageHistory = "history"
	MessageTrade   = "trade"
	MessageSummary = "summary"
)

// maxReplayInterval caps the per-frame delay a client may request.
const maxReplayInterval = time.Second

// StreamMessage is one websocket frame of a run replay.
type StreamMessage struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
	Data any    `json:"data"`
}

// streamSimulation replays a stored run over a websocket: every history record,
// then every ledger event, then the formatted summary, then a normal close.
// The optional interval query parameter (a Go duration) paces the history frames.
func (s *Server) streamSimulation(c *gin.Context) {
	var interval time.Duration
	if v := c.Query("interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid interval " + v})
			return
		}
		interval = min(d, maxReplayInterval)
	}

	run, ok := s.loadRun(c)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	s.metrics.StreamClients.Inc()
	defer s.metrics.StreamClients.Dec()

	ctx := c.Request.Context()
	seq := 0
	send := func(typ string, data any) bool {
		seq++
		if err := conn.WriteJSON(StreamMessage{Type: typ, Seq: seq, Data: data}); err != nil {
			s.logger.Debug("replay client gone", zap.String("run_id", run.RunID), zap.Error(err))
			return false
		}
		return true
	}

	for _, h := range run.Result.History {
		if !send(MessageHistory, h) {
			return
		}
		if interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
	for _, t := range run.Result.Trades {
		if !send(MessageTrade, t) {
			return
		}
	}
	if !send(MessageSummary, s.response(run).Summary) {
		return
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay complete"),
		time.Now().Add(time.Second))
}
