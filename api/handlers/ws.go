package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"anonchat/api/middleware"
	"anonchat/config"
	"anonchat/logging"
	"anonchat/services"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandlers struct {
	manager  *services.WSConnManager
	presence *services.PresenceService
	chat     *services.ChatService
	typing   services.TypingTransport
}

func NewWSHandlers(manager *services.WSConnManager, presence *services.PresenceService, chat *services.ChatService, typing services.TypingTransport) *WSHandlers {
	return &WSHandlers{manager: manager, presence: presence, chat: chat, typing: typing}
}

// wsClientMessage - входящая команда сессии
type wsClientMessage struct {
	Action         string `json:"action"`
	ConversationID int64  `json:"conversation_id"`
}

// wsSession - состояние одной websocket-сессии: отправители сигналов
// набора и подписки на диалоги, которые пользователь сейчас смотрит
type wsSession struct {
	userID  int64
	handler *WSHandlers

	mu      sync.Mutex
	senders map[int64]*services.TypingSender
	watches map[int64]func()
}

// Connect апгрейдит соединение и гоняет read-loop до закрытия
func (h *WSHandlers) Connect(c *gin.Context) {
	userID := currentUserID(c)

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.L().Warnf("ws upgrade failed: %v", err)
		return
	}

	h.manager.Add(userID, conn)
	middleware.SetWSConnections(h.manager.ConnectionCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.presence.Track(ctx, userID); err != nil {
		logging.L().Warnf("presence track failed for user %d: %v", userID, err)
	}
	services.TouchLastSeen(ctx, userID)

	session := &wsSession{
		userID:  userID,
		handler: h,
		senders: make(map[int64]*services.TypingSender),
		watches: make(map[int64]func()),
	}

	// периодическое продление присутствия, пока сессия жива
	go h.keepAlive(ctx, userID)

	h.readLoop(ctx, conn, session)

	session.close()
	h.manager.Remove(userID, conn)
	middleware.SetWSConnections(h.manager.ConnectionCount())
	_ = conn.Close()

	// presence снимается только с последней сессией пользователя
	if h.manager.ActiveSessions(userID) == 0 {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if err := h.presence.Untrack(cleanupCtx, userID); err != nil {
			logging.L().Warnf("presence untrack failed for user %d: %v", userID, err)
		}
		services.TouchLastSeen(cleanupCtx, userID)
	}
}

func (h *WSHandlers) keepAlive(ctx context.Context, userID int64) {
	ticker := time.NewTicker(config.HeartbeatInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.presence.Track(ctx, userID); err != nil {
				logging.L().Warnf("presence refresh failed for user %d: %v", userID, err)
			}
			services.TouchLastSeen(ctx, userID)
		}
	}
}

func (h *WSHandlers) readLoop(ctx context.Context, conn *websocket.Conn, session *wsSession) {
	for {
		var msg wsClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.L().Warnf("ws read error for user %d: %v", session.userID, err)
			}
			return
		}

		switch msg.Action {
		case "typing":
			session.typing(ctx, msg.ConversationID)
		case "typing_stop":
			session.typingStop(msg.ConversationID)
		case "watch":
			session.watch(ctx, msg.ConversationID)
		case "unwatch":
			session.unwatch(msg.ConversationID)
		case "heartbeat":
			services.TouchLastSeen(ctx, session.userID)
		default:
			// неизвестные команды молча игнорируются
		}
	}
}

func (s *wsSession) typing(ctx context.Context, conversationID int64) {
	if conversationID <= 0 {
		return
	}
	if err := s.handler.chat.VerifyParticipant(ctx, s.userID, conversationID); err != nil {
		return
	}

	s.mu.Lock()
	sender, ok := s.senders[conversationID]
	if !ok {
		sender = services.NewTypingSender(s.handler.typing, conversationID, s.userID, config.TypingDebounce())
		s.senders[conversationID] = sender
	}
	s.mu.Unlock()

	sender.Typing()
}

func (s *wsSession) typingStop(conversationID int64) {
	s.mu.Lock()
	sender := s.senders[conversationID]
	s.mu.Unlock()
	if sender != nil {
		sender.Stop()
	}
}

// watch подписывает сессию на сигналы набора в диалоге; свои сигналы
// отфильтровываются, индикатор гаснет сам по таймауту
func (s *wsSession) watch(ctx context.Context, conversationID int64) {
	if conversationID <= 0 {
		return
	}
	if err := s.handler.chat.VerifyParticipant(ctx, s.userID, conversationID); err != nil {
		return
	}

	s.mu.Lock()
	if _, ok := s.watches[conversationID]; ok {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	indicator := services.NewTypingIndicator(config.TypingTimeout(), func(typing bool) {
		s.handler.manager.SendJSON(s.userID, gin.H{
			"event":           "typing",
			"conversation_id": conversationID,
			"is_typing":       typing,
		})
	})

	stop, err := s.handler.typing.Subscribe(ctx, conversationID, func(payload services.TypingPayload) {
		if payload.UserID == s.userID {
			return
		}
		indicator.Touch()
	})
	if err != nil {
		logging.L().Warnf("typing subscribe failed for conversation %d: %v", conversationID, err)
		return
	}

	s.mu.Lock()
	s.watches[conversationID] = func() {
		stop()
		indicator.Cancel()
	}
	s.mu.Unlock()
}

func (s *wsSession) unwatch(conversationID int64) {
	s.mu.Lock()
	cleanup := s.watches[conversationID]
	delete(s.watches, conversationID)
	s.mu.Unlock()
	if cleanup != nil {
		cleanup()
	}
}

func (s *wsSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sender := range s.senders {
		sender.Stop()
	}
	for _, cleanup := range s.watches {
		cleanup()
	}
	s.senders = nil
	s.watches = nil
}
