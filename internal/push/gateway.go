package push

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"cycle-trader/internal/infrastructure"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// PushGateway fans backtest events (trades, equity points, finished reports)
// published on NATS out to websocket subscribers. Clients subscribe to
// subjects like "backtest.trades.BTCUSDT" or "backtest.reports.<job_id>".
type PushGateway struct {
	logger        *zap.Logger
	js            nats.JetStreamContext
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool
	natsSubs      map[string]*nats.Subscription
	mu            sync.RWMutex
}

func NewPushGateway(js nats.JetStreamContext, logger *zap.Logger) *PushGateway {
	return &PushGateway{
		logger:        logger,
		js:            js,
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		natsSubs:      make(map[string]*nats.Subscription),
	}
}

func (g *PushGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("failed to upgrade websocket", zap.Error(err))
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	g.mu.Lock()
	g.clients[client] = true
	g.mu.Unlock()
	infrastructure.WSConnections.Inc()

	go g.writePump(client)
	g.readPump(client)
}

type clientMessage struct {
	Action  string `json:"action"` // "subscribe" or "unsubscribe"
	Subject string `json:"subject"`
}

func (g *PushGateway) readPump(client *Client) {
	defer g.disconnect(client)

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.logger.Warn("bad client message", zap.Error(err))
			continue
		}
		if !strings.HasPrefix(msg.Subject, "backtest.") {
			g.logger.Warn("subject outside backtest stream rejected", zap.String("subject", msg.Subject))
			continue
		}

		switch msg.Action {
		case "subscribe":
			g.subscribe(client, msg.Subject)
		case "unsubscribe":
			g.unsubscribe(client, msg.Subject)
		}
	}
}

func (g *PushGateway) writePump(client *Client) {
	for data := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

func (g *PushGateway) subscribe(client *Client, subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subscriptions[subject] == nil {
		g.subscriptions[subject] = make(map[*Client]bool)
	}
	g.subscriptions[subject][client] = true

	if _, ok := g.natsSubs[subject]; ok {
		return
	}

	sub, err := g.js.Subscribe(subject, g.natsHandler(subject), nats.DeliverNew())
	if err != nil {
		g.logger.Error("failed to subscribe to NATS", zap.String("subject", subject), zap.Error(err))
		return
	}
	g.natsSubs[subject] = sub
}

func (g *PushGateway) unsubscribe(client *Client, subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.subscriptions[subject], client)
	if len(g.subscriptions[subject]) == 0 {
		delete(g.subscriptions, subject)
		if sub, ok := g.natsSubs[subject]; ok {
			_ = sub.Unsubscribe()
			delete(g.natsSubs, subject)
		}
	}
}

// natsHandler delivers messages under the subject the clients subscribed
// with. Wildcard subscriptions like "backtest.trades.*" receive messages whose
// concrete subject differs from the subscription key, so broadcasting by
// m.Subject would miss them.
func (g *PushGateway) natsHandler(subject string) nats.MsgHandler {
	return func(m *nats.Msg) {
		g.broadcast(subject, m.Data)
	}
}

func (g *PushGateway) broadcast(subject string, data []byte) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for client := range g.subscriptions[subject] {
		select {
		case client.send <- data:
		default:
			g.logger.Warn("client send buffer full, dropping message")
		}
	}
}

func (g *PushGateway) disconnect(client *Client) {
	g.mu.Lock()
	for subject := range g.subscriptions {
		delete(g.subscriptions[subject], client)
	}
	delete(g.clients, client)
	g.mu.Unlock()

	close(client.send)
	client.conn.Close()
	infrastructure.WSConnections.Dec()
}
