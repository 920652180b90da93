package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered by the caller
// through the net/rpc package before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes party history over net/rpc for operational tooling.
type AdminService struct {
	recorder persistence.Recorder
}

func NewAdminService(recorder persistence.Recorder) *AdminService {
	return &AdminService{recorder: recorder}
}

type PartyStatsArgs struct {
	Code string
}

type PartyStatsReply struct {
	Stats *models.PartyStats
}

// GetPartyStats follows the net/rpc signature: exported method, exported
// arguments, pointer reply, error return.
func (a *AdminService) GetPartyStats(args *PartyStatsArgs, reply *PartyStatsReply) error {
	stats, err := a.recorder.GetPartyStats(args.Code)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

// HistoryAdminService exposes full game history when the GORM store backs the
// server.
type HistoryAdminService struct {
	history *services.HistoryService
}

func NewHistoryAdminService(history *services.HistoryService) *HistoryAdminService {
	return &HistoryAdminService{history: history}
}

type PartyHistoryArgs struct {
	Code  string
	Limit int
}

type PartyHistoryReply struct {
	Data map[string]interface{}
}

func (s *HistoryAdminService) GetPartyHistory(args *PartyHistoryArgs, reply *PartyHistoryReply) error {
	data, err := s.history.GetPartyHistory(args.Code, args.Limit)
	if err != nil {
		return err
	}
	reply.Data = data
	return nil
}
