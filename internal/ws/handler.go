package ws

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"piratwhist-service/internal/push"
	"piratwhist-service/internal/service/room"
	"piratwhist-service/internal/service/score"
	appErr "piratwhist-service/pkg/errors"
	"piratwhist-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades anonymous connections and routes their commands:
// online_* to the game rooms, sheet_* to the scoresheets. A connection
// needs no account; seats are bound by room code and clientId.
type Handler struct {
	roomSvc  *room.Service
	scoreSvc *score.Service

	nextConnID atomic.Int64
}

func NewHandler(roomSvc *room.Service, scoreSvc *score.Service) *Handler {
	return &Handler{roomSvc: roomSvc, scoreSvc: scoreSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin enforcement happens at the proxy
	},
}

func (h *Handler) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	connID := h.nextConnID.Add(1)
	logger.Log.Info("websocket connected", zap.Int64("connID", connID))

	cl := newClient(conn, connID, h.roomSvc, h.scoreSvc)
	cl.run()
}

type client struct {
	conn      *websocket.Conn
	connID    int64
	roomSvc   *room.Service
	scoreSvc  *score.Service
	outbound  chan push.Message
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, connID int64, roomSvc *room.Service, scoreSvc *score.Service) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		connID:    connID,
		roomSvc:   roomSvc,
		scoreSvc:  scoreSvc,
		outbound:  make(chan push.Message, 64),
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.roomSvc.Disconnect(c.connID)
		c.scoreSvc.Disconnect(c.connID)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("ws read closed", zap.Int64("connID", c.connID), zap.Error(err))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.sendError("invalid payload", nil)
			continue
		}
		if incoming.Type == "" {
			continue
		}

		if err := c.dispatch(incoming.Type, incoming.Data); err != nil {
			c.sendError(err.Error(), err)
		}
	}
}

func (c *client) dispatch(cmdType string, data json.RawMessage) error {
	switch cmdType {
	case "online_create_room":
		var req room.CreateRoomRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		_, err := c.roomSvc.Create(c.connID, c.outbound, req)
		return err

	case "online_join_room":
		var req room.JoinRoomRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		if len(req.Room) != 4 {
			return appErr.ErrRoomNotFound
		}
		_, err := c.roomSvc.Join(c.connID, c.outbound, req)
		return err

	case "online_leave_room":
		var req room.LeaveRoomRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		c.roomSvc.Leave(c.connID, req)
		c.enqueue(push.Message{Type: "online_left"})
		return nil

	case "online_update_lobby":
		var req room.UpdateLobbyRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		rt, err := c.roomSvc.Lookup(req.Room)
		if err != nil {
			return err
		}
		return rt.UpdateLobby(c.connID, req)

	case "online_start_game":
		var req room.StartGameRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		rt, err := c.roomSvc.Lookup(req.Room)
		if err != nil {
			return err
		}
		return rt.StartGame(c.connID)

	case "online_set_bid":
		var req room.SetBidRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		rt, err := c.roomSvc.Lookup(req.Room)
		if err != nil {
			return err
		}
		return rt.SetBid(c.connID, req.Bid)

	case "online_play_card":
		var req room.PlayCardRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		rt, err := c.roomSvc.Lookup(req.Room)
		if err != nil {
			return err
		}
		return rt.PlayCard(c.connID, req.Card)

	case "online_next":
		var req room.NextRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		rt, err := c.roomSvc.Lookup(req.Room)
		if err != nil {
			return err
		}
		return rt.Next(c.connID)

	case "sheet_create_room":
		code := c.scoreSvc.Create(c.connID, c.outbound)
		c.enqueue(push.Message{Type: "sheet_created", Data: gin.H{"room": code}})
		return nil

	case "sheet_join_room":
		var req score.JoinSheetRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.Join(c.connID, c.outbound, req)

	case "sheet_leave_room":
		var req score.JoinSheetRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		c.scoreSvc.Leave(c.connID, req.Room)
		c.enqueue(push.Message{Type: "sheet_left"})
		return nil

	case "sheet_set_player_count":
		var req score.SetPlayerCountRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.SetPlayerCount(req)

	case "sheet_set_rounds":
		var req score.SetRoundsRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.SetRounds(req)

	case "sheet_set_name":
		var req score.SetNameRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.SetName(req)

	case "sheet_start_game":
		var req score.StartGameRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.StartGame(req)

	case "sheet_set_cell":
		var req score.SetCellRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.SetCell(req)

	case "sheet_reset_room":
		var req score.ResetRequest
		if err := unmarshal(data, &req); err != nil {
			return err
		}
		return c.scoreSvc.Reset(req)

	default:
		logger.Log.Debug("unknown ws command", zap.String("type", cmdType), zap.Int64("connID", c.connID))
		return nil
	}
}

func unmarshal(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func (c *client) sendError(message string, err error) {
	code := "BAD_REQUEST"
	if err != nil {
		code = appErr.Code(err)
	}
	c.enqueue(push.Message{
		Type: "error",
		Data: gin.H{"code": code, "message": message},
	})
}

// enqueue uses the same outbound queue as room broadcasts so frames keep
// their relative order.
func (c *client) enqueue(msg push.Message) {
	select {
	case c.outbound <- msg:
	default:
		logger.Log.Warn("ws outbound queue full", zap.Int64("connID", c.connID))
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbound:
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("ws write error", zap.Int64("connID", c.connID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
