package state

import (
	"sync"
	"time"

	"github.com/fivemdb/fivemdb/internal/logger"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

const writeWait = 5 * time.Second

type SubscriberStore interface {
	Add(conn *websocket.Conn) string
	Remove(id string)
	Count() int
	Broadcast(event Event)
	CloseAll()
}

type subscriber struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer
	mut sync.Mutex
}

type InMemorySubscriberStore struct {
	mut    sync.Mutex
	conns  map[string]*subscriber
	Logger logger.Logger
}

func NewSubscriberStore(log logger.Logger) *InMemorySubscriberStore {
	return &InMemorySubscriberStore{
		conns:  make(map[string]*subscriber),
		Logger: log,
	}
}

func (s *InMemorySubscriberStore) Add(conn *websocket.Conn) string {
	id := xid.New().String()
	s.mut.Lock()
	s.conns[id] = &subscriber{conn: conn}
	s.mut.Unlock()
	s.Logger.Debug("Subscriber connected", "subscriber", id)
	return id
}

// Remove closes and forgets the subscriber. Unknown ids are ignored.
func (s *InMemorySubscriberStore) Remove(id string) {
	s.mut.Lock()
	sub, exists := s.conns[id]
	delete(s.conns, id)
	s.mut.Unlock()
	if !exists {
		return
	}
	sub.conn.Close()
	s.Logger.Debug("Subscriber disconnected", "subscriber", id)
}

func (s *InMemorySubscriberStore) Count() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.conns)
}

func (s *InMemorySubscriberStore) Broadcast(event Event) {
	s.mut.Lock()
	targets := make(map[string]*subscriber, len(s.conns))
	for id, sub := range s.conns {
		targets[id] = sub
	}
	s.mut.Unlock()

	for id, sub := range targets {
		sub.mut.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteJSON(event)
		sub.mut.Unlock()
		if err != nil {
			s.Logger.Error("Failed to deliver event, dropping subscriber", err, "subscriber", id)
			s.Remove(id)
		}
	}
}

func (s *InMemorySubscriberStore) CloseAll() {
	s.mut.Lock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	s.mut.Unlock()
	for _, id := range ids {
		s.Remove(id)
	}
}
