package server

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *FiberServer) RegisterFiberRoutes() {
	// Apply CORS middleware
	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept,Authorization,Content-Type",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	s.App.Get("/health", s.healthHandler)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	s.App.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.App.Get("/ws", websocket.New(s.gameWebSocketHandler))
}

// gameWebSocketHandler streams snapshots and notifications. Clients only
// listen; actions go through the HTTP API.
func (s *FiberServer) gameWebSocketHandler(conn *websocket.Conn) {
	client := s.hub.RegisterClient(conn)
	log.Printf("[WS] New connection %s", client.ID())
	client.SendInitialState(s.registry.States())

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			log.Printf("[WS] Read error for client %s: %v", client.ID(), err)
			s.hub.UnregisterClient(client)
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var clientMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			continue
		}

		switch clientMsg.Type {
		case "ping":
			pongJSON, _ := json.Marshal(map[string]string{"type": "pong"})
			conn.WriteMessage(websocket.TextMessage, pongJSON)
		case "state":
			client.SendInitialState(s.registry.States())
		}
	}
}
