package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"waitlist/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PrivateView reports whether a view may see party contact details.
func PrivateView(view string) bool {
	return view == "staff" || view == "analytics"
}

// client pumps one subscription onto one websocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	sub  *Subscription
}

// ServeWS subscribes the observer and upgrades the request. The subscription
// is taken before the upgrade so a duplicate id can still be refused with a
// plain HTTP error.
func ServeWS(h *Hub, w http.ResponseWriter, r *http.Request, observerID, view string) error {
	sub, err := h.Subscribe(observerID, view)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(sub)
		slog.Warn("upgrader.Upgrade()", "observer", observerID, "error", err)
		return nil
	}

	c := &client{hub: h, conn: conn, sub: sub}
	go c.writePump()
	go c.readPump()
	return nil
}

// readPump only watches for the connection going away.
func (c *client) readPump() {
	defer func() {
		c.hub.release(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("observer connection closed", "observer", c.sub.ID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				if c.sub.Lagged() {
					c.writeEvent(resyncEvent())
				}
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeEvent(ev); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) writeEvent(ev models.ChangeEvent) error {
	if !PrivateView(c.sub.View) {
		ev = ev.Public()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("json.Marshal()", "observer", c.sub.ID, "type", ev.Type, "error", err)
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func resyncEvent() models.ChangeEvent {
	return models.ChangeEvent{
		Type:       models.EventResync,
		Reason:     "observer fell behind, reconnect for a fresh snapshot",
		OccurredAt: time.Now(),
	}
}
