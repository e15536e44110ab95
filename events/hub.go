package events

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/cleaning-app/models"
)

// Event types pushed to connected dashboards
const (
	EventRoomUpdate       = "room_update"
	EventRoomCreate       = "room_create"
	EventRoomDelete       = "room_delete"
	EventSessionStarted   = "session_started"
	EventSessionProgress  = "session_progress"
	EventSessionCompleted = "session_completed"
	EventSessionCancelled = "session_cancelled"
	EventDashboardStats   = "dashboard_stats"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds every connected dashboard client (admin or cleaner) and fans
// lifecycle events out to all of them.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]string),
}

func RegisterClient(conn *websocket.Conn, role string) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = role
}

func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// BroadcastRoomUpdate pushes a room's new derived status.
func BroadcastRoomUpdate(room models.Room) {
	broadcast(Message{
		Event: EventRoomUpdate,
		Data:  room,
	})
}

func BroadcastRoomCreate(room models.Room) {
	broadcast(Message{
		Event: EventRoomCreate,
		Data:  room,
	})
}

func BroadcastRoomDelete(roomID uint) {
	broadcast(Message{
		Event: EventRoomDelete,
		Data:  map[string]interface{}{"room_id": roomID},
	})
}

// BroadcastSessionEvent pushes a lifecycle transition with its session.
func BroadcastSessionEvent(event string, session models.CleaningSession) {
	broadcast(Message{
		Event: event,
		Data:  session,
	})
}

func BroadcastDashboardStats(data interface{}) {
	broadcast(Message{
		Event: EventDashboardStats,
		Data:  data,
	})
}

func BroadcastMessage(msg Message) {
	broadcast(msg)
}

func broadcast(msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn := range hub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to client: %v", err)
			continue
		}
	}
}
