package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anonchat/api/handlers"
	"anonchat/api/middleware"
	"anonchat/services"
)

// Registry - все обработчики приложения, собранные в одном месте
type Registry struct {
	Auth  *handlers.AuthHandlers
	User  *handlers.UserHandlers
	Chat  *handlers.ChatHandlers
	Match *handlers.MatchHandlers
	WS    *handlers.WSHandlers
}

func PublicApi(router *gin.Engine, registry *Registry, users *services.UserService) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/v1/")
	{
		public.POST("auth/register", registry.Auth.Register)
		public.POST("auth/login", registry.Auth.Login)
	}

	authorized := router.Group("/api/v1/")
	authorized.Use(middleware.AuthMiddleware(users))
	{
		authorized.POST("auth/logout", registry.Auth.Logout)

		// Профиль
		authorized.GET("me", registry.User.GetMe)
		authorized.PATCH("me", registry.User.UpdateProfile)
		authorized.POST("me/heartbeat", registry.User.Heartbeat)
		authorized.GET("me/blocked", registry.User.ListBlocked)

		// Подбор собеседника
		authorized.POST("match/random", registry.Match.FindRandom)

		// Диалоги
		authorized.GET("conversations", registry.Chat.ListConversations)
		authorized.GET("conversations/favorites", registry.Chat.ListFavorites)
		authorized.GET("conversations/:id", registry.Chat.GetConversation)
		authorized.POST("conversations/:id/messages", registry.Chat.SendMessage)
		authorized.POST("conversations/:id/read", registry.Chat.MarkRead)
		authorized.POST("conversations/:id/favorite", registry.Chat.ToggleFavorite)

		// Блокировки
		authorized.POST("users/:id/block", registry.Chat.ToggleBlock)
	}

	ws := router.Group("/ws")
	ws.Use(middleware.AuthMiddleware(users))
	{
		ws.GET("", registry.WS.Connect)
	}
}
