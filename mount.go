package livebind

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livefir/livebind/internal/dom"
	"github.com/livefir/livebind/internal/metrics"
	"github.com/livefir/livebind/internal/session"
)

// Factory builds a fresh engine for one client. Every WebSocket connection
// and every page load gets its own engine.
type Factory func() (*Engine, error)

// MountConfig configures the live handler
type MountConfig struct {
	Title             string
	Upgrader          *websocket.Upgrader
	Collector         *metrics.Collector
	WebSocketDisabled bool
	// IdleTimeout closes connections that send no event for this long.
	IdleTimeout time.Duration
}

// MountOption is a functional option for configuring Mount
type MountOption func(*MountConfig)

// WithTitle sets the title of the served page
func WithTitle(title string) MountOption {
	return func(c *MountConfig) {
		c.Title = title
	}
}

// WithUpgrader replaces the default WebSocket upgrader
func WithUpgrader(u *websocket.Upgrader) MountOption {
	return func(c *MountConfig) {
		c.Upgrader = u
	}
}

// WithMountCollector records connection metrics in collector
func WithMountCollector(collector *metrics.Collector) MountOption {
	return func(c *MountConfig) {
		c.Collector = collector
	}
}

// WithWebSocketDisabled serves the page only
func WithWebSocketDisabled() MountOption {
	return func(c *MountConfig) {
		c.WebSocketDisabled = true
	}
}

// WithIdleTimeout closes connections idle for longer than d
func WithIdleTimeout(d time.Duration) MountOption {
	return func(c *MountConfig) {
		c.IdleTimeout = d
	}
}

// Mount creates an http.Handler serving a bound fragment. GET returns the
// page with a small client that forwards DOM events over a WebSocket; each
// event is dispatched through the connection's engine and answered with the
// emitted actions and the patches of the changed subtrees.
func Mount(factory Factory, opts ...MountOption) http.Handler {
	config := MountConfig{
		Title: "livebind",
		Upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Collector: metrics.NewCollector(),
	}

	for _, opt := range opts {
		opt(&config)
	}

	return &liveHandler{
		factory:  factory,
		config:   config,
		sessions: session.NewManager(config.IdleTimeout),
	}
}

// message is an event sent by the client
type message struct {
	Type   string         `json:"type"`
	Path   string         `json:"path"`
	Detail map[string]any `json:"detail,omitempty"`
}

// UpdateResponse answers one client event
type UpdateResponse struct {
	Patches []dom.Patch `json:"patches"`
	Actions []string    `json:"actions"`
	Error   string      `json:"error,omitempty"`
}

// liveHandler handles both WebSocket and HTTP requests
type liveHandler struct {
	factory  Factory
	config   MountConfig
	sessions *session.Manager
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.config.WebSocketDisabled {
		w.Header().Set("X-Livebind-WebSocket", "disabled")
	} else {
		w.Header().Set("X-Livebind-WebSocket", "enabled")
	}

	if websocket.IsWebSocketUpgrade(r) {
		if h.config.WebSocketDisabled {
			http.Error(w, "WebSocket is disabled on this endpoint", http.StatusBadRequest)
			return
		}
		h.handleWebSocket(w, r)
		return
	}
	h.handleHTTP(w, r)
}

func (h *liveHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	h.config.Collector.IncrementConnectionOpened()
	defer h.config.Collector.IncrementConnectionClosed()

	sess, err := h.sessions.Open(conn.RemoteAddr().String())
	if err != nil {
		log.Printf("Failed to open session: %v", err)
		return
	}
	defer h.sessions.Close(sess.ID)
	log.Printf("Client %s connected from %s", sess.ID[:8], sess.RemoteAddr)

	engine, err := h.factory()
	if err != nil {
		log.Printf("Failed to create engine: %v", err)
		return
	}
	// The page was rendered by another engine; start from a clean change set.
	engine.Render()

	for {
		conn.SetReadDeadline(time.Now().Add(h.sessions.IdleTimeout()))
		_, data, err := conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				log.Printf("Client %s idle, closing", sess.ID[:8])
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "idle timeout"),
					time.Now().Add(time.Second))
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		msg, err := parseMessage(data)
		if err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}
		h.sessions.Touch(sess.ID)

		response := h.handleMessage(engine, msg)

		responseBytes, err := json.Marshal(response)
		if err != nil {
			log.Printf("Failed to marshal response: %v", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, responseBytes); err != nil {
			log.Printf("WebSocket write failed: %v", err)
			break
		}
	}

	if final, ok := h.sessions.Get(sess.ID); ok {
		log.Printf("Client %s disconnected after %d events", sess.ID[:8], final.Events)
	}
}

// handleMessage dispatches one client event through engine.
func (h *liveHandler) handleMessage(engine *Engine, msg message) UpdateResponse {
	node, err := engine.GetRef(msg.Path)
	if err != nil {
		return UpdateResponse{Patches: []dom.Patch{}, Actions: []string{}, Error: err.Error()}
	}

	ev := dom.NewEvent(msg.Type, node)
	ev.Detail = msg.Detail
	actions := engine.TriggerEvent(ev)
	if actions == nil {
		actions = []string{}
	}
	return UpdateResponse{Patches: engine.Render(), Actions: actions}
}

func (h *liveHandler) handleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engine, err := h.factory()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = pageTemplate.Execute(w, pageData{
		Title:     h.config.Title,
		Fragment:  template.HTML(engine.HTML()),
		Events:    engine.EventTypes(),
		WebSocket: !h.config.WebSocketDisabled,
	})
	if err != nil {
		log.Printf("Failed to render page: %v", err)
	}
}

func parseMessage(data []byte) (message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return message{}, fmt.Errorf("failed to parse event: %w", err)
	}
	if msg.Type == "" {
		return message{}, fmt.Errorf("event without type")
	}
	return msg, nil
}

type pageData struct {
	Title     string
	Fragment  template.HTML
	Events    []string
	WebSocket bool
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<div id="livebind-root">{{.Fragment}}</div>
{{if .WebSocket}}<script>
(function () {
  var root = document.getElementById("livebind-root");
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + location.pathname);

  function pathOf(node) {
    var parts = [];
    while (node && node !== root) {
      parts.unshift(Array.prototype.indexOf.call(node.parentNode.childNodes, node));
      node = node.parentNode;
    }
    return node === root ? parts.join(":") : null;
  }

  function nodeAt(path) {
    var node = root;
    if (path === "") return node;
    path.split(":").forEach(function (i) { node = node && node.childNodes[+i]; });
    return node;
  }

  {{range .Events}}root.addEventListener({{.}}, function (ev) {
    var path = pathOf(ev.target);
    if (path === null || ws.readyState !== 1) return;
    var detail = {};
    if (ev.target.value !== undefined) detail.value = ev.target.value;
    ws.send(JSON.stringify({type: ev.type, path: path, detail: detail}));
  }, true);
  {{end}}

  ws.onmessage = function (msg) {
    var update = JSON.parse(msg.data);
    if (update.error) console.warn("livebind:", update.error);
    (update.patches || []).forEach(function (p) {
      var node = nodeAt(p.path);
      if (node) node.innerHTML = p.html;
    });
  };
})();
</script>{{end}}
</body>
</html>
`))
