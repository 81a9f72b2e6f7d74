package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/blockdraft/internal/codegen"
	"github.com/livetemplate/blockdraft/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Envelope is the multiplexed WebSocket message exchanged with editor
// clients.
type Envelope struct {
	TemplateID string          `json:"templateId,omitempty"`
	Action     string          `json:"action"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// statePayload is the data carried by a "state" envelope: the document
// state plus a rendered preview so the client never re-renders locally.
type statePayload struct {
	State
	HTML string `json:"html"`
}

// wsClient serializes writes to a single WebSocket connection. Action
// replies from the read loop and broadcast pushes from HTTP handlers
// would otherwise race on the same socket.
type wsClient struct {
	conn       *websocket.Conn
	templateID string
	mu         sync.Mutex
}

func (c *wsClient) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// serveWebSocket upgrades /ws/{id} and feeds envelope-framed editor
// actions into the shared session for that template.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ws/")
	if id == "" {
		http.Error(w, "template ID required", http.StatusBadRequest)
		return
	}

	// The document must exist before the socket is upgraded.
	if _, err := s.openSession(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}

	client := s.registerClient(conn, id)
	defer func() {
		s.unregisterClient(conn)
		conn.Close()
	}()

	if s.debug {
		log.Printf("[WS] Client connected: %s", conn.RemoteAddr())
	}

	// Push the current state so the client renders immediately.
	s.pushState(client, id)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}

		if s.debug {
			log.Printf("[WS] Received: %s", message)
		}

		s.handleEnvelope(client, message)
	}

	if s.debug {
		log.Printf("[WS] Client disconnected: %s", conn.RemoteAddr())
	}
}

// handleEnvelope executes one client message. Successful edits reach
// the client through the resulting broadcast; failures come back as an
// "error" envelope on this connection only.
func (s *Server) handleEnvelope(client *wsClient, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Printf("[WS] Failed to parse message: %v", err)
		s.sendError(client, "invalid message")
		return
	}

	ctx := context.Background()
	id := client.templateID

	var err error
	switch env.Action {
	case "dispatch":
		var req actionRequest
		if uerr := json.Unmarshal(env.Data, &req); uerr != nil {
			s.sendError(client, "invalid action payload")
			return
		}
		if verr := s.api.validate.Struct(req); verr != nil {
			s.sendError(client, formatValidationError(verr))
			return
		}
		act, aerr := decodeAction(req)
		if aerr != nil {
			s.sendError(client, aerr.Error())
			return
		}
		_, err = s.Dispatch(ctx, id, act)
	case "undo":
		// A no-op at the oldest snapshot stays silent.
		_, _, err = s.Undo(ctx, id)
	case "redo":
		_, _, err = s.Redo(ctx, id)
	case "select":
		// Empty data clears the selection.
		var req struct {
			ID string `json:"id"`
		}
		if len(env.Data) > 0 {
			if uerr := json.Unmarshal(env.Data, &req); uerr != nil {
				s.sendError(client, "invalid select payload")
				return
			}
		}
		_, err = s.Select(ctx, id, req.ID)
	case "state":
		s.pushState(client, id)
	default:
		s.sendError(client, "unknown action: "+env.Action)
		return
	}

	if err != nil {
		s.sendError(client, err.Error())
	}
}

// registerClient tracks a WebSocket client editing the given template.
func (s *Server) registerClient(conn *websocket.Conn, templateID string) *wsClient {
	client := &wsClient{conn: conn, templateID: templateID}
	s.connMu.Lock()
	s.connections[conn] = client
	n := len(s.connections)
	s.connMu.Unlock()
	log.Printf("[Server] WebSocket connection registered: %d active connections", n)
	return client
}

func (s *Server) unregisterClient(conn *websocket.Conn) {
	s.connMu.Lock()
	delete(s.connections, conn)
	n := len(s.connections)
	s.connMu.Unlock()
	log.Printf("[Server] WebSocket connection unregistered: %d active connections", n)
}

func (s *Server) clientsFor(templateID string) []*wsClient {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	var clients []*wsClient
	for _, c := range s.connections {
		if c.templateID == templateID {
			clients = append(clients, c)
		}
	}
	return clients
}

// stateEnvelope marshals a "state" push with a freshly rendered preview.
func (s *Server) stateEnvelope(id string, st State) ([]byte, error) {
	html := codegen.Generate(st.Template, codegen.Options{
		Mode:  codegen.ModePreview,
		Theme: codegen.Theme(s.config.Preview.GetTheme()),
		Data:  s.sampleData(),
	})

	payload, err := json.Marshal(statePayload{State: st, HTML: html})
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{TemplateID: id, Action: "state", Data: payload})
}

// broadcastState pushes the document state to every client editing
// templateID.
func (s *Server) broadcastState(templateID string, st State) {
	clients := s.clientsFor(templateID)
	if len(clients) == 0 {
		return
	}

	data, err := s.stateEnvelope(templateID, st)
	if err != nil {
		log.Printf("[WS] Failed to marshal state push: %v", err)
		return
	}

	for _, c := range clients {
		if err := c.send(data); err != nil {
			log.Printf("[WS] Failed to push state: %v", err)
		}
	}
}

// pushState sends the current state to one client.
func (s *Server) pushState(client *wsClient, id string) {
	st, err := s.stateFor(context.Background(), id)
	if err != nil {
		s.sendError(client, err.Error())
		return
	}

	data, err := s.stateEnvelope(id, st)
	if err != nil {
		log.Printf("[WS] Failed to marshal state push: %v", err)
		return
	}

	if err := client.send(data); err != nil {
		log.Printf("[WS] Failed to send message: %v", err)
	}
}

func (s *Server) sendError(client *wsClient, msg string) {
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		log.Printf("[WS] Failed to marshal error message: %v", err)
		return
	}

	data, err := json.Marshal(Envelope{TemplateID: client.templateID, Action: "error", Data: payload})
	if err != nil {
		log.Printf("[WS] Failed to marshal error message: %v", err)
		return
	}

	if err := client.send(data); err != nil {
		log.Printf("[WS] Failed to send message: %v", err)
	}
}

// BroadcastReload tells every connected client to reload after a
// workspace file change.
func (s *Server) BroadcastReload(filePath string) {
	s.connMu.RLock()
	clients := make([]*wsClient, 0, len(s.connections))
	for _, c := range s.connections {
		clients = append(clients, c)
	}
	s.connMu.RUnlock()

	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]string{"path": filePath})
	if err != nil {
		log.Printf("[Server] Failed to marshal reload message: %v", err)
		return
	}
	data, err := json.Marshal(Envelope{Action: "reload", Data: payload})
	if err != nil {
		log.Printf("[Server] Failed to marshal reload message: %v", err)
		return
	}

	log.Printf("[Server] Broadcasting reload for %s to %d connections", filePath, len(clients))

	for _, c := range clients {
		if err := c.send(data); err != nil {
			log.Printf("[Server] Failed to send reload to connection: %v", err)
		}
	}
}
