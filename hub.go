package main

import "sync"

// Hub manages all connected clients and routes them into sessions.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager

	// Connection limiting, accessed from HTTP handlers.
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int

	db   *DB
	auth *Auth
}

func NewHub(cfg Config, db *DB) *Hub {
	h := &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		sessions:      NewSessionManager(cfg.Server.MaxSessions, cfg.Game),
		ipConns:       make(map[string]int),
		maxConnsPerIP: cfg.Server.MaxConnsPerIP,
		maxTotalConns: cfg.Server.MaxTotalConns,
		db:            db,
	}
	if db != nil {
		h.auth = NewAuth(db)
	}
	return h
}

// LoadArena resolves a map id into a loaded arena: 0 is the default map,
// anything else comes from the stored map table. Topology errors reject the
// whole document.
func (h *Hub) LoadArena(mapID int64) (*LoadedMap, error) {
	if mapID == 0 || h.db == nil {
		return LoadMap(nil)
	}
	raw, err := h.db.GetMap(mapID)
	if err != nil {
		return nil, err
	}
	doc, err := ParseMapDocument(raw)
	if err != nil {
		return nil, err
	}
	m, err := LoadMap(doc)
	if err != nil {
		return nil, err
	}
	for _, w := range m.Warnings {
		logger.Warnw("map load warning", "map", mapID, "warning", w)
	}
	return m, nil
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.sessionID != "" {
				h.sessions.RemovePlayer(client.sessionID, client.playerID)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count.
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
