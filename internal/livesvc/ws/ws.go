package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/bonniEdo/badminton-go/internal/comm"
)

// Ws tracks websocket connections and which game each socket watches.
type Ws struct {
	connMap sync.Map // socketId -> *websocket.Conn
	gameMap sync.Map // socketId -> gameId being watched
}

func NewWs() *Ws {
	return &Ws{}
}

// SocketMessage handles a message from a web client.
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "watch":
		s.handleWatch(socketId, message)
	case "unwatch":
		s.gameMap.Delete(socketId)
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) handleWatch(socketId string, msg *comm.WSMessage) {
	var payload comm.WatchRequest
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Errorf("Error: malformed watch payload %s", err)
		return
	}
	if payload.GameID <= 0 {
		log.Error("Invalid watch payload: missing game id")
		return
	}

	s.gameMap.Store(socketId, payload.GameID)
	log.Infof("socket %s now watching game %d", socketId, payload.GameID)
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	conn, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return conn.(*websocket.Conn), true
}

// GetWatchers returns the socket ids currently watching a game.
func (s *Ws) GetWatchers(gameId int64) []string {
	var sockets []string
	s.gameMap.Range(func(key, value interface{}) bool {
		if value.(int64) == gameId {
			sockets = append(sockets, key.(string))
		}
		return true
	})
	return sockets
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.gameMap.Delete(socketId)
}
