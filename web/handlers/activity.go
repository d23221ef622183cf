package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// FeedbackActivity is the live-activity message pushed to /ws/activity
// subscribers whenever a rating is stored.
type FeedbackActivity struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Rating  int    `json:"rating"`
}

// NewFeedbackActivity builds the activity message for a stored rating.
func NewFeedbackActivity(eventID string, rating int) FeedbackActivity {
	return FeedbackActivity{Type: "feedback_submitted", EventID: eventID, Rating: rating}
}

// subscriber receives encoded activity messages. Tests substitute a buffered
// in-memory implementation for a live websocket connection.
type subscriber interface {
	inbox() chan []byte
	disconnect()
}

// ActivityHub fans feedback activity out to websocket subscribers. Each
// message is encoded once per broadcast; a subscriber whose inbox stays full
// is dropped rather than stalling the others.
type ActivityHub struct {
	allowedOrigins map[string]bool
	originPatterns []string

	subscribers map[subscriber]struct{}
	events      chan FeedbackActivity
	join        chan subscriber
	leave       chan subscriber
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewActivityHub creates a hub that accepts websocket upgrades from pages
// served at the given host and port. The loopback aliases are always
// allowed, so a browser reaching the server as either localhost or
// 127.0.0.1 can subscribe.
func NewActivityHub(host string, port int) *ActivityHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ActivityHub{
		allowedOrigins: make(map[string]bool),
		subscribers:    make(map[subscriber]struct{}),
		events:         make(chan FeedbackActivity, 256),
		join:           make(chan subscriber),
		leave:          make(chan subscriber),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, origin := range originHosts(host) {
		pattern := fmt.Sprintf("%s:%d", origin, port)
		h.originPatterns = append(h.originPatterns, pattern)
		h.allowedOrigins["http://"+pattern] = true
		h.allowedOrigins["https://"+pattern] = true
	}
	return h
}

// originHosts returns the hosts to accept Origin headers from: the loopback
// aliases plus the configured bind host when it is not one of them.
func originHosts(host string) []string {
	hosts := []string{"localhost", "127.0.0.1"}
	for _, known := range hosts {
		if host == known || host == "" {
			return hosts
		}
	}
	return append(hosts, host)
}

// Run processes joins, leaves and broadcasts until Stop is called.
func (h *ActivityHub) Run() {
	for {
		select {
		case sub := <-h.join:
			h.mu.Lock()
			h.subscribers[sub] = struct{}{}
			count := len(h.subscribers)
			h.mu.Unlock()
			log.Printf("activity: subscriber joined (total: %d)", count)

		case sub := <-h.leave:
			h.mu.Lock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.inbox())
			}
			count := len(h.subscribers)
			h.mu.Unlock()
			log.Printf("activity: subscriber left (total: %d)", count)

		case activity := <-h.events:
			data, err := json.Marshal(activity)
			if err != nil {
				log.Printf("ERROR: activity encode failed: %v", err)
				continue
			}
			h.mu.Lock()
			for sub := range h.subscribers {
				select {
				case sub.inbox() <- data:
				default:
					// Inbox full: the subscriber stopped draining.
					close(sub.inbox())
					delete(h.subscribers, sub)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			log.Println("activity hub stopping...")
			return
		}
	}
}

// Stop shuts the hub down and disconnects every subscriber.
func (h *ActivityHub) Stop() {
	h.cancel()

	h.mu.Lock()
	for sub := range h.subscribers {
		close(sub.inbox())
		sub.disconnect()
	}
	h.subscribers = make(map[subscriber]struct{})
	h.mu.Unlock()
}

// Publish queues an activity message for broadcast. The message is dropped
// when the queue is full rather than blocking the request path.
func (h *ActivityHub) Publish(activity FeedbackActivity) {
	select {
	case h.events <- activity:
	default:
		log.Println("WARNING: activity queue full, dropping message")
	}
}

func (h *ActivityHub) subscribe(sub subscriber) {
	select {
	case h.join <- sub:
	case <-h.ctx.Done():
	}
}

func (h *ActivityHub) unsubscribe(sub subscriber) {
	select {
	case h.leave <- sub:
	case <-h.ctx.Done():
	}
}

// ServeHTTP upgrades the request to a websocket activity subscription.
func (h *ActivityHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && !h.allowedOrigins[origin] {
		http.Error(w, "Forbidden: invalid origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		log.Printf("ERROR: websocket upgrade failed: %v", err)
		return
	}

	sub := &wsSubscriber{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.subscribe(sub)

	go sub.writePump()
	go sub.readPump()
}

// wsSubscriber adapts a live websocket connection to the subscriber
// interface.
type wsSubscriber struct {
	hub  *ActivityHub
	conn *websocket.Conn
	send chan []byte
}

func (s *wsSubscriber) inbox() chan []byte {
	return s.send
}

func (s *wsSubscriber) disconnect() {
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}

// writePump forwards queued activity to the connection until the inbox
// closes or a write fails.
func (s *wsSubscriber) writePump() {
	defer func() {
		s.hub.unsubscribe(s)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for msg := range s.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.conn.Write(ctx, websocket.MessageText, msg)
		cancel()

		if err != nil {
			log.Printf("ERROR: websocket write failed: %v", err)
			return
		}
	}
}

// readPump drains the connection to notice disconnects. Subscribers never
// send meaningful payloads.
func (s *wsSubscriber) readPump() {
	defer func() {
		s.hub.unsubscribe(s)
		_ = s.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := s.conn.Read(context.Background()); err != nil {
			return
		}
	}
}
