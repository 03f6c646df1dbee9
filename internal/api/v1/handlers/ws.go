package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/docstore"
	"taskboard/internal/middleware"
	myws "taskboard/internal/websocket"
	"taskboard/pkg/logger"
)

// WatchUpgrade rejects plain HTTP requests and collections that may not be
// streamed before the websocket handshake.
func WatchUpgrade(c *fiber.Ctx) error {
	if !myws.Streamable(c.Params("collection")) {
		return failure(c, fiber.StatusNotFound, codeNotFound, "Unknown collection")
	}
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// streamScope says whether a listener only gets part of the collection. Over
// REST members see their own tasks only, so their task stream is narrowed the
// same way.
func streamScope(collection string, admin bool, who string) ([]docstore.Filter, bool) {
	if collection == docstore.Tasks && !admin {
		return []docstore.Filter{docstore.Where("assigned_to", who)}, true
	}
	return nil, false
}

// Watch streams snapshots of one collection until the client goes away.
// Incoming messages are ignored.
var Watch = websocket.New(func(c *websocket.Conn) {
	client := &myws.Client{Conn: c, Collection: c.Params("collection")}

	role, _ := c.Locals(middleware.LocalRole).(string)
	who, _ := c.Locals(middleware.LocalEmployeeID).(string)
	if who == "" {
		who, _ = c.Locals(middleware.LocalUserID).(string)
	}
	if filters, scoped := streamScope(client.Collection, role == middleware.RoleAdmin, who); scoped {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if _, err := myws.Stream(ctx, config.Subscriptions, client, filters...); err != nil {
			logger.ErrorLogger.Error("Websocket subscribe failed", zap.String("collection", client.Collection), zap.Error(err))
			c.Close()
			return
		}
	}

	if !config.Hub.Join(client) {
		return
	}
	logger.ContextLogger.Info("Websocket client connected",
		zap.String("collection", client.Collection), zap.Bool("scoped", client.Scoped))
	defer func() {
		config.Hub.Leave(client)
		logger.ContextLogger.Info("Websocket client disconnected", zap.String("collection", client.Collection))
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
})
