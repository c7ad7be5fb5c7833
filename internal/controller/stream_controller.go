package controller

import (
	"apim-analytics-backend/internal/dto"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
	// CORS already allows every origin for the REST API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamWidget godoc
// @Summary      Stream widget views
// @Description  Upgrades to a websocket that sends the current view and then every view change until the widget is unmounted.
// @Tags         widgets
// @Param        id            path   string  true   "Widget instance ID"
// @Param        access_token  query  string  false  "Bearer token for clients that cannot set headers"
// @Success      101
// @Failure      404  {object}  model.Response "Widget instance not found"
// @Security     Bearer
// @Router       /api/v1/widgets/{id}/stream [get]
func (c *WidgetController) StreamWidget(ctx *gin.Context) {
	id := ctx.Param("id")
	current, err := c.widgetService.View(id)
	if err != nil {
		respondError(ctx, err, "Failed to stream widget")
		return
	}
	views, cancel, err := c.widgetService.Listen(id)
	if err != nil {
		respondError(ctx, err, "Failed to stream widget")
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("instance", id).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	log.Debug().Str("instance", id).Msg("Widget stream opened")
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeView(conn, current); err != nil {
		return
	}
	for {
		select {
		case view, ok := <-views:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "widget unmounted"))
				return
			}
			if err := writeView(conn, view); err != nil {
				log.Debug().Err(err).Str("instance", id).Msg("Widget stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			log.Debug().Str("instance", id).Msg("Widget stream closed by client")
			return
		}
	}
}

func writeView(conn *websocket.Conn, view dto.WidgetState) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readUntilClosed discards client messages and keeps the read deadline
// alive on pongs.
func readUntilClosed(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Unexpected websocket close")
			}
			return
		}
	}
}
