package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
)

// ChatFrame is a single text message received over the chat websocket
type ChatFrame struct {
	Text string `json:"text"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	origins := s.configManager.GetConfig().Server.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(origins, r.Header.Get("Origin"))
		},
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// handleChatWebSocket runs one conversation over a websocket. Each inbound
// frame is either a JSON ChatFrame or plain text; every reply is a JSON Reply.
func (s *Server) handleChatWebSocket(c *gin.Context) {
	chatID := strings.TrimSpace(c.Param("chat_id"))

	conn, err := s.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).WithField("chat_id", chatID).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := s.logger.WithFields(logrus.Fields{"chat_id": chatID, "remote": c.ClientIP()})
	logger.Debug("Chat websocket opened")

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(conn, done, logger)

	ctx := c.Request.Context()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("Chat websocket closed unexpectedly")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply, err := s.shell.HandleMessage(ctx, chatID, decodeFrame(payload))
		if err != nil {
			logger.WithError(err).Warn("Chat message failed")
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			logger.WithError(err).Warn("Chat websocket write failed")
			return
		}
	}
}

// keepAlive pings the client so an idle chat keeps extending the read
// deadline through its pongs. WriteControl may run alongside WriteJSON.
func (s *Server) keepAlive(conn *websocket.Conn, done <-chan struct{}, logger *logrus.Entry) {
	ticker := time.NewTicker(s.wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				logger.WithError(err).Debug("Chat websocket ping failed")
				return
			}
		}
	}
}

func decodeFrame(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if strings.HasPrefix(text, "{") {
		var frame ChatFrame
		if err := json.Unmarshal(payload, &frame); err == nil {
			return frame.Text
		}
	}
	return text
}
