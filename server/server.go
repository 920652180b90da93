package server

import (
	"encoding/json"
	"errors"
	"net/http"
	netrpc "net/rpc"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/partyserver/broadcast"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/monitor"
	"github.com/wfunc/partyserver/network"
	"github.com/wfunc/partyserver/party"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/registry"
	partyserver_rpc "github.com/wfunc/partyserver/rpc"
	"github.com/wfunc/partyserver/session"
	"github.com/wfunc/partyserver/state"
	"github.com/wfunc/partyserver/timer"
)

const sessionIdleLimit = 5 * time.Minute

// PartyServer is the HTTP/WebSocket gateway in front of the party core.
type PartyServer struct {
	addr           string
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	broadcaster    *broadcast.PartyBroadcaster
	service        *party.Service
	monitor        *monitor.Monitor
	rpcServer      *partyserver_rpc.Server
	timers         *timer.Manager
	shutdownChan   chan struct{}
}

func NewPartyServer(addr, rpcAddr string, store persistence.Store, recorder persistence.Recorder, mon *monitor.Monitor) *PartyServer {
	s := &PartyServer{
		addr:           addr,
		sessionManager: session.NewManager(),
		broadcaster:    broadcast.NewPartyBroadcaster(),
		monitor:        mon,
		timers:         timer.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	reg := registry.New(store)
	s.service = party.NewService(reg, &meteredBroadcaster{inner: s.broadcaster, monitor: mon}, recorder)

	rpcServer, err := partyserver_rpc.NewServer(rpcAddr)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	if recorder != nil {
		netrpc.Register(partyserver_rpc.NewAdminService(recorder))
	}

	return s
}

func (s *PartyServer) Start() error {
	go s.rpcServer.Start()

	s.timers.AddRepeating(time.Minute, s.sweepIdleSessions)

	logger.Log.Infof("Party server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.routes())
}

// routes builds the gateway's HTTP surface.
func (s *PartyServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/create-party", s.handleCreateParty)
	mux.HandleFunc("/join-party", s.handleJoinParty)
	mux.HandleFunc("/leave-party", s.handleLeaveParty)
	mux.HandleFunc("/update-order", s.handleUpdateOrder)
	mux.HandleFunc("/kick-player", s.handleKickPlayer)
	mux.HandleFunc("/update-settings", s.handleUpdateSettings)
	mux.HandleFunc("/start-game", s.handleStartGame)
	mux.HandleFunc("/advance-turn", s.handleAdvanceTurn)
	mux.HandleFunc("/party-status", s.handlePartyStatus)
	mux.HandleFunc("/get-game-data/", s.handleGetGameData)
	mux.HandleFunc("/get-game-settings/", s.handleGetGameSettings)
	mux.HandleFunc("/get-player-order/", s.handleGetPlayerOrder)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *PartyServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

// sweepIdleSessions closes sessions that have been silent too long. Party
// records themselves are never expired.
func (s *PartyServer) sweepIdleSessions() {
	for _, sess := range s.sessionManager.All() {
		if sess.IdleSince(sessionIdleLimit) {
			logger.Log.Infof("Closing idle session %s", sess.GetID())
			sess.Close()
		}
	}
}

// --- WebSocket handling ---

func (s *PartyServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *PartyServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncConnectedClients()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.broadcaster.Unsubscribe(sess)
		s.monitor.SetActiveParties(s.broadcaster.Rooms())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecConnectedClients()
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *PartyServer) handlePacket(sess *session.Session, packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.Touch()
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.broadcaster.Unsubscribe(sess)
	default:
		logger.Log.Infof("Unknown message type: %d", packet.MsgID)
	}
}

func (s *PartyServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.Code == "" {
		return
	}

	sess.Username = req.Username
	s.broadcaster.Subscribe(req.Code, sess)
	s.monitor.SetActiveParties(s.broadcaster.Rooms())

	ack, _ := json.Marshal(models.Event{
		Name: models.EventJoinedRoom,
		Data: models.JoinedRoomPayload{Message: "Joined party " + req.Code},
	})
	sess.Send(network.MsgTypeEvent, ack)
}

// --- HTTP JSON handlers ---

type response map[string]interface{}

func writeJSON(w http.ResponseWriter, body response) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func failure(w http.ResponseWriter, message string) {
	writeJSON(w, response{"success": false, "message": message})
}

// errorMessage maps core errors to the messages clients display.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, party.ErrPartyNotFound):
		return "Invalid party code"
	case errors.Is(err, party.ErrUsernameTaken):
		return "Username already taken"
	case errors.Is(err, party.ErrPartyFull):
		return "Party is full"
	case errors.Is(err, party.ErrUserNotInParty):
		return "User not in party"
	case errors.Is(err, party.ErrPlayerNotFound):
		return "Player not found in party"
	case errors.Is(err, party.ErrSelfKickRejected):
		return "Host cannot kick themselves"
	case errors.Is(err, party.ErrInvalidOrder):
		return "Invalid player order"
	case errors.Is(err, party.ErrCapacityReduction):
		return "Max players cannot be below the current player count"
	case errors.Is(err, party.ErrMissingField),
		errors.Is(err, party.ErrMissingChipColor),
		errors.Is(err, party.ErrInvalidBlinds),
		errors.Is(err, party.ErrInvalidMaxPlayers):
		return "Invalid settings: " + err.Error()
	case errors.Is(err, state.ErrInsufficientPlayers):
		return "Need at least 2 players to start a game"
	case errors.Is(err, state.ErrInactiveGame):
		return "Game is not active"
	case errors.Is(err, state.ErrWrongTurn):
		return "Not your turn"
	default:
		return "Internal server error"
	}
}

func (s *PartyServer) observe(start time.Time) {
	s.monitor.ObserveRequestLatency(time.Since(start))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		failure(w, "Malformed request body")
		return false
	}
	return true
}

func (s *PartyServer) handleCreateParty(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" {
		req.Username = "Host"
	}

	p, err := s.service.CreateParty(req.Username)
	if err != nil {
		logger.Log.Errorf("Failed to create party: %v", err)
		failure(w, "Failed to create party")
		return
	}

	logger.Log.Infof("Party %s created by %s", p.Code, p.Host)
	writeJSON(w, response{"success": true, "code": p.Code, "host_name": p.Host})
}

func (s *PartyServer) handleJoinParty(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	members, err := s.service.JoinParty(req.Code, req.Username)
	if err != nil {
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true, "members": members})
}

func (s *PartyServer) handleLeaveParty(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	message, err := s.service.LeaveParty(req.Code, req.Username)
	if err != nil {
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true, "message": message})
}

func (s *PartyServer) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code  string   `json:"code"`
		Order []string `json:"order"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.ReorderPlayers(req.Code, req.Order); err != nil {
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true})
}

func (s *PartyServer) handleKickPlayer(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code         string `json:"code"`
		Host         string `json:"host"`
		KickedPlayer string `json:"kickedPlayer"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if _, err := s.service.KickPlayer(req.Code, req.Host, req.KickedPlayer); err != nil {
		if errors.Is(err, party.ErrUnauthorized) {
			failure(w, "Only the host can kick players")
			return
		}
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true})
}

func (s *PartyServer) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code     string                `json:"code"`
		Host     string                `json:"host"`
		Settings models.SettingsUpdate `json:"settings"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	settings, err := s.service.UpdateSettings(req.Code, req.Host, req.Settings)
	if err != nil {
		if errors.Is(err, party.ErrUnauthorized) {
			failure(w, "Only the host can update settings")
			return
		}
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true, "settings": settings})
}

func (s *PartyServer) handleStartGame(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code string `json:"code"`
		Host string `json:"host"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.StartGame(req.Code, req.Host); err != nil {
		if errors.Is(err, party.ErrUnauthorized) {
			failure(w, "Only the host can start the game")
			return
		}
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true})
}

func (s *PartyServer) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	turn, err := s.service.AdvanceTurn(req.Code, req.Username)
	if err != nil {
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{
		"success":       true,
		"currentTurn":   turn.CurrentTurn,
		"currentPlayer": turn.CurrentPlayer,
	})
}

func (s *PartyServer) handlePartyStatus(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	var req struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	members, err := s.service.Status(req.Code)
	if err != nil {
		failure(w, errorMessage(err))
		return
	}
	writeJSON(w, response{"success": true, "members": members})
}

// pathCode pulls the party code off a "/route/{code}" URL.
func pathCode(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

func (s *PartyServer) handleGetGameData(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	code := pathCode(r.URL.Path, "/get-game-data/")
	data, err := s.service.GetGameData(code)
	if err != nil {
		failure(w, "Game not found")
		return
	}
	writeJSON(w, response{
		"success":     true,
		"players":     data.Players,
		"currentTurn": data.CurrentTurn,
		"host":        data.Host,
	})
}

func (s *PartyServer) handleGetGameSettings(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	code := pathCode(r.URL.Path, "/get-game-settings/")
	settings, err := s.service.GetGameSettings(code)
	if err != nil {
		failure(w, "Game not found")
		return
	}
	writeJSON(w, response{"success": true, "settings": settings})
}

func (s *PartyServer) handleGetPlayerOrder(w http.ResponseWriter, r *http.Request) {
	defer s.observe(time.Now())

	code := pathCode(r.URL.Path, "/get-player-order/")
	data, err := s.service.GetGameData(code)
	if err != nil {
		failure(w, "Game not found")
		return
	}
	writeJSON(w, response{
		"success":     true,
		"players":     data.Players,
		"currentTurn": data.CurrentTurn,
	})
}

// meteredBroadcaster counts published events on the way through.
type meteredBroadcaster struct {
	inner   broadcast.Broadcaster
	monitor *monitor.Monitor
}

func (b *meteredBroadcaster) Publish(code, event string, payload interface{}) error {
	b.monitor.IncEventsPublished()
	return b.inner.Publish(code, event, payload)
}
