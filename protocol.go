package main

import "encoding/json"

// Client -> Server message types. A message with an empty type field is a
// plain cursor input packet.
const (
	MsgJoin   = "Join"
	MsgCreate = "Create"
	MsgList   = "List"
	MsgCheck  = "Check"
	MsgReady  = "Ready"
	MsgBinary = "Binary" // opt into msgpack snapshots

	MsgRegister = "Register"
	MsgLogin    = "Login"
	MsgAuth     = "Auth" // resume with a stored token
)

// Server -> Client message types. Outbound messages carry the type inline so
// the payload stays flat on the wire.
const (
	MsgWelcome    = "Welcome"
	MsgGameState  = "GameState"
	MsgEliminated = "Eliminated"
	MsgMatchOver  = "MatchOver"
	MsgCreated    = "Created"
	MsgJoined     = "Joined"
	MsgSessions   = "Sessions"
	MsgChecked    = "Checked"
	MsgError      = "Error"
	MsgAuthOK     = "AuthOK"
)

// InEnvelope peeks at the type of an incoming message. Payload fields sit
// flat next to the type, so the same bytes are unmarshalled a second time
// into the concrete message.
type InEnvelope struct {
	Type string `json:"type"`
}

// PeekType reads the type field without touching the payload.
func PeekType(raw []byte) (string, error) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// JoinMsg joins an existing session.
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CreateMsg creates a session. Mode is "lms", "control_point" or "sandbox";
// MapID selects a stored map document, 0 for the default arena.
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
	Mode        string `json:"mode,omitempty"`
	MapID       int64  `json:"map_id,omitempty"`
}

// CheckMsg asks whether a session exists.
type CheckMsg struct {
	SID string `json:"sid"`
}

// WelcomeMsg assigns the joining player their id.
type WelcomeMsg struct {
	Type string `json:"type"`
	ID   uint32 `json:"id"`
}

// ObjectState is one dynamic or static body in the snapshot. Squares carry
// half extents, circles a radius. UserData tags the client-side rendering:
// 0 wall, 1 grabbable, 2 death.
type ObjectState struct {
	ID         uint32  `json:"id" msgpack:"id"`
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	Rotation   float64 `json:"rotation" msgpack:"rotation"`
	Shape      string  `json:"shape" msgpack:"shape"` // "Square" | "Circle"
	HalfWidth  float64 `json:"half_width,omitempty" msgpack:"half_width,omitempty"`
	HalfHeight float64 `json:"half_height,omitempty" msgpack:"half_height,omitempty"`
	Radius     float64 `json:"radius,omitempty" msgpack:"radius,omitempty"`
	UserData   uint32  `json:"user_data" msgpack:"user_data"`
}

// PlayerView is one player's cursor in the snapshot.
type PlayerView struct {
	ID              uint32  `json:"id" msgpack:"id"`
	Name            string  `json:"name" msgpack:"name"`
	X               float64 `json:"x" msgpack:"x"`
	Y               float64 `json:"y" msgpack:"y"`
	Alive           bool    `json:"alive" msgpack:"alive"`
	IsGrabbing      bool    `json:"is_grabbing" msgpack:"is_grabbing"`
	IsOverGrabbable bool    `json:"is_over_grabbable" msgpack:"is_over_grabbable"`
}

// ZoneView is the control point circle plus live capture progress.
type ZoneView struct {
	X        float64 `json:"x" msgpack:"x"`
	Y        float64 `json:"y" msgpack:"y"`
	Radius   float64 `json:"radius" msgpack:"radius"`
	Holder   uint32  `json:"holder" msgpack:"holder"`
	Progress float64 `json:"progress" msgpack:"progress"` // 0..1 of hold time
}

// SnapshotMsg is the full authoritative state broadcast each tick.
type SnapshotMsg struct {
	Type       string        `json:"type" msgpack:"type"`
	Tick       uint64        `json:"tick" msgpack:"tick"`
	Phase      string        `json:"phase" msgpack:"phase"`
	Boundaries []Boundary    `json:"boundaries" msgpack:"boundaries"`
	Objects    []ObjectState `json:"objects" msgpack:"objects"`
	Players    []PlayerView  `json:"players" msgpack:"players"`
	Zone       *ZoneView     `json:"zone,omitempty" msgpack:"zone,omitempty"`
}

// EliminatedMsg announces one elimination to the whole session.
type EliminatedMsg struct {
	Type string `json:"type"`
	ID   uint32 `json:"id"`
	Tick uint64 `json:"tick"`
}

// MatchOverMsg seals the match. Draw and Winner are mutually exclusive;
// Placements lists player ids best-first.
type MatchOverMsg struct {
	Type       string   `json:"type"`
	Winner     uint32   `json:"winner,omitempty"`
	Draw       bool     `json:"draw"`
	Placements []uint32 `json:"placements"`
}

// CreatedMsg confirms session creation; the client should navigate to it.
type CreatedMsg struct {
	Type string `json:"type"`
	SID  string `json:"sid"`
}

// JoinedMsg confirms a join, echoing the session metadata.
type JoinedMsg struct {
	Type string `json:"type"`
	SID  string `json:"sid"`
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// SessionInfo is one row of the session list.
type SessionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Mode    string `json:"mode"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
}

// SessionsMsg is the session list response.
type SessionsMsg struct {
	Type     string        `json:"type"`
	Sessions []SessionInfo `json:"sessions"`
}

// CheckedMsg answers a session existence check.
type CheckedMsg struct {
	Type    string `json:"type"`
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Players int    `json:"players,omitempty"`
}

// RegisterMsg creates an account.
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates an existing account.
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg resumes an account session from a stored token.
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms register, login or token resume.
type AuthOKMsg struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"player_id"`
}

// ErrorMsg reports a recoverable protocol error to one client.
type ErrorMsg struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

func modeName(m Mode) string {
	switch m {
	case ModeLMS:
		return "lms"
	case ModeControlPoint:
		return "control_point"
	}
	return "sandbox"
}
