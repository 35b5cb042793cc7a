package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // input runs at 60Hz, leave headroom for control
	maxNameLen        = 16
	maxSessionNameLen = 30
)

// Client is one WebSocket connection.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   uint32 // 0 until joined
	sessionID  string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Account state, zero for guests.
	authPlayerID int64
	authUsername string
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the connection until it drops. Idle
// connections time out through the pong deadline.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugw("ws read error", "addr", c.remoteAddr, "err", err)
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			logger.Warnw("rate limit exceeded, disconnecting", "addr", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump flushes the send channel to the connection and keeps pings going.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks pre-packed binary frames (msgpack snapshots).
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON marshals and queues one message for the client.
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorw("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text frame. Slow clients drop
// frames rather than stall the game loop.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// SendBinary queues pre-packed bytes as a binary frame.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes one inbound frame. An empty type means a plain cursor
// input packet; malformed frames are dropped without disturbing buffered
// input.
func (c *Client) handleMessage(raw []byte) {
	t, err := PeekType(raw)
	if err != nil {
		return
	}
	switch t {
	case "":
		c.handleInput(raw)
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(raw)
	case MsgJoin:
		c.handleJoin(raw)
	case MsgCheck:
		c.handleCheck(raw)
	case MsgReady:
		c.handleReady()
	case MsgBinary:
		c.handleBinary()
	case MsgRegister:
		c.handleRegister(raw)
	case MsgLogin:
		c.handleLogin(raw)
	case MsgAuth:
		c.handleAuth(raw)
	}
}

func (c *Client) handleInput(raw []byte) {
	if c.sessionID == "" || c.playerID == 0 {
		return
	}
	var input PlayerInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		return
	}
	sess.Game.HandleInput(c.playerID, input)
}

func (c *Client) handleList() {
	c.SendJSON(SessionsMsg{Type: MsgSessions, Sessions: c.hub.sessions.ListSessions()})
}

func (c *Client) handleCreate(raw []byte) {
	var msg CreateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	name := cleanName(msg.Name, GenerateGuestName(), maxNameLen)
	sname := cleanName(msg.SessionName, "Arena", maxSessionNameLen)
	mode := ParseMode(msg.Mode)

	arena, err := c.hub.LoadArena(msg.MapID)
	if err != nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: "map rejected: " + err.Error()})
		return
	}

	sess := c.hub.sessions.CreateSession(sname, mode, arena)
	if sess == nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: "too many active sessions"})
		return
	}
	c.SendJSON(CreatedMsg{Type: MsgCreated, SID: sess.ID})
	c.joinSession(sess, name)
}

func (c *Client) handleJoin(raw []byte) {
	var msg JoinMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: "session not found"})
		return
	}
	c.joinSession(sess, cleanName(msg.Name, GenerateGuestName(), maxNameLen))
}

func (c *Client) joinSession(sess *Session, name string) {
	if c.sessionID != "" {
		c.hub.sessions.RemovePlayer(c.sessionID, c.playerID)
		c.sessionID = ""
		c.playerID = 0
	}

	player := sess.Game.AddPlayer(name)
	if player == nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: "session not joinable"})
		return
	}
	// First join on an unauthenticated connection records a guest identity.
	if c.authPlayerID == 0 && c.hub.db != nil {
		if id, err := c.hub.db.CreateGuest(GenerateGuestName()); err == nil {
			c.authPlayerID = id
		}
	}
	player.AuthPlayerID = c.authPlayerID

	c.playerID = player.ID
	c.sessionID = sess.ID
	sess.Game.SetClient(player.ID, c)

	c.SendJSON(JoinedMsg{Type: MsgJoined, SID: sess.ID, Name: sess.Name, Mode: modeName(sess.Mode)})
	c.SendJSON(WelcomeMsg{Type: MsgWelcome, ID: player.ID})
}

func (c *Client) handleCheck(raw []byte) {
	var msg CheckMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(CheckedMsg{Type: MsgChecked, SID: msg.SID, Exists: false})
		return
	}
	c.SendJSON(CheckedMsg{
		Type:    MsgChecked,
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Players: sess.Game.PlayerCount(),
	})
}

func (c *Client) handleReady() {
	if c.sessionID == "" || c.playerID == 0 {
		return
	}
	if sess := c.hub.sessions.GetSession(c.sessionID); sess != nil {
		sess.Game.HandleReady(c.playerID)
	}
}

func (c *Client) handleBinary() {
	if c.sessionID == "" || c.playerID == 0 {
		return
	}
	if sess := c.hub.sessions.GetSession(c.sessionID); sess != nil {
		sess.Game.SetBinary(c.playerID, true)
	}
}

func (c *Client) handleRegister(raw []byte) {
	if c.hub.auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: err.Error()})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendJSON(AuthOKMsg{Type: MsgAuthOK, Token: token, Username: msg.Username, PlayerID: id})
}

func (c *Client) handleLogin(raw []byte) {
	if c.hub.auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: err.Error()})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.SendJSON(AuthOKMsg{Type: MsgAuthOK, Token: token, Username: msg.Username, PlayerID: id})
}

func (c *Client) handleAuth(raw []byte) {
	if c.hub.auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendJSON(ErrorMsg{Type: MsgError, Msg: "invalid token"})
		return
	}
	c.authPlayerID = id
	c.authUsername = username
	c.SendJSON(AuthOKMsg{Type: MsgAuthOK, Token: msg.Token, Username: username, PlayerID: id})
}

func cleanName(s, fallback string, maxLen int) string {
	if s == "" {
		return fallback
	}
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
