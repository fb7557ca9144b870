package services

import (
	"encoding/json"
	"sync"

	"anonchat/logging"

	"github.com/gorilla/websocket"
)

// WSConnManager держит все открытые websocket-сессии по пользователям.
// У одного пользователя может быть несколько вкладок.
type WSConnManager struct {
	mu    sync.RWMutex
	users map[int64][]*websocket.Conn
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		users: make(map[int64][]*websocket.Conn),
	}
}

func (m *WSConnManager) Add(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = append(m.users[userID], conn)
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conns := m.users[userID]
	for i, c := range conns {
		if c == conn {
			m.users[userID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(m.users[userID]) == 0 {
		delete(m.users, userID)
	}
}

// ActiveSessions - число открытых сессий пользователя; ноль означает,
// что присутствие пора снимать
func (m *WSConnManager) ActiveSessions(userID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users[userID])
}

// ConnectionCount - общее число открытых соединений
func (m *WSConnManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, conns := range m.users {
		total += len(conns)
	}
	return total
}

// Send пишет под эксклюзивной блокировкой: gorilla/websocket не допускает
// конкурентных писателей на одном соединении
func (m *WSConnManager) Send(userID int64, message []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conn := range m.users[userID] {
		_ = conn.WriteMessage(websocket.TextMessage, message)
	}
}

// Broadcast рассылает событие во все открытые сессии всех пользователей.
// Используется для дельт присутствия, адресных событий здесь нет.
func (m *WSConnManager) Broadcast(event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.L().Warnf("ws broadcast: failed to marshal event: %v", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conns := range m.users {
		for _, conn := range conns {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
	}
}

// SendJSON сериализует событие и рассылает его во все сессии пользователя
func (m *WSConnManager) SendJSON(userID int64, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.L().Warnf("ws send: failed to marshal event: %v", err)
		return
	}
	m.Send(userID, data)
}

var GlobalWSConnManager = NewWSConnManager()
