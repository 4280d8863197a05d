package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"statementviewer/services/dashboard/internal/coordinator"
	"statementviewer/services/dashboard/internal/views"
)

// Frame is one dashboard update pushed to the browser.
type Frame struct {
	Version uint64 `json:"version"`
	HTML    string `json:"html"`
}

// SnapshotSource yields a session's published state.
type SnapshotSource interface {
	Watch() (<-chan coordinator.Snapshot, func())
}

// Renderer turns dashboard props into the live region's HTML.
type Renderer interface {
	DashboardHTML(p views.DashboardProps) (string, error)
}

// Server upgrades dashboard requests and streams re-rendered state.
type Server struct {
	manager      *Manager
	renderer     Renderer
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server.
func NewServer(manager *Manager, renderer Renderer, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *Server {
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Server{
		manager:      manager,
		renderer:     renderer,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
		},
	}
}

// Serve upgrades the request and streams frames from source until either side
// goes away. onClose runs once the connection is closed.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, sessionID string, source SnapshotSource, onClose func()) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		if onClose != nil {
			onClose()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	connection := NewConnection(uuid.NewString(), sessionID, conn, s.writeTimeout, s.pingInterval, s.logger, func(c *Connection) {
		s.manager.Remove(c.ID())
		cancel()
		s.logger.Debug("dashboard disconnected", zap.String("session_id", c.SessionID()), zap.String("conn_id", c.ID()))
		if onClose != nil {
			onClose()
		}
	})
	s.manager.Add(connection)

	go s.stream(connection, source)
	go connection.Start(ctx)
	s.logger.Debug("dashboard connected", zap.String("session_id", sessionID))
}

func (s *Server) stream(conn *Connection, source SnapshotSource) {
	updates, stop := source.Watch()
	defer stop()

	for {
		select {
		case <-conn.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				conn.Close()
				return
			}
			frame, err := s.frame(snap)
			if err != nil {
				s.logger.Error("render dashboard frame", zap.Error(err))
				continue
			}
			if !conn.Send(frame) {
				return
			}
		}
	}
}

func (s *Server) frame(snap coordinator.Snapshot) ([]byte, error) {
	html, err := s.renderer.DashboardHTML(views.PropsFromSnapshot(snap))
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Version: snap.Version, HTML: html})
}
