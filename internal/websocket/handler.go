package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches an upgraded technician connection to the hub. Blocks until
// the connection drops (fiber's websocket handler expects that).
func ServeWs(hub *Hub, c *websocket.Conn, technicianID string) {
	client := &Client{Hub: hub, Conn: c, TechnicianID: technicianID, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	go client.writePump()
	client.readPump()
}
