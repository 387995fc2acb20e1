package tracking

import (
	"net/http"
	"time"

	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/messaging"
	"github.com/matst80/killu-finder/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	prefix          = "global"
	trackingTopic   = messaging.ChangeTopic("tracking")
	trackingContext = "killu"
)

const (
	EventSession uint16 = 0
	EventSearch  uint16 = 1
)

type RabbitTracking struct {
	connection *amqp.Connection
	now        func() time.Time
}

func NewRabbitTracking(url string) (*RabbitTracking, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err = messaging.DefineTopic(ch, prefix, trackingTopic); err != nil {
		conn.Close()
		return nil, err
	}
	return &RabbitTracking{connection: conn, now: time.Now}, nil
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

func (t *RabbitTracking) send(data any) {
	if err := messaging.SendChange(t.connection, prefix, trackingTopic, data); err != nil {
		logger.Log.Warn("failed to send tracking event", zap.Error(err))
	}
}

type BaseEvent struct {
	SessionId string `json:"session_id"`
	Context   string `json:"context,omitempty"`
	Event     uint16 `json:"event"`
	Timestamp int64  `json:"ts"`
}

type Session struct {
	*BaseEvent
	UserAgent    string `json:"user_agent,omitempty"`
	Ip           string `json:"ip,omitempty"`
	Language     string `json:"language,omitempty"`
	PragmaHeader string `json:"pragma,omitempty"`
}

type SearchEventData struct {
	*BaseEvent
	PriceRange      string `json:"price_range,omitempty"`
	OS              string `json:"os,omitempty"`
	Preference      string `json:"preference,omitempty"`
	NumberOfResults int    `json:"noi"`
	Cached          bool   `json:"cached"`
	Referer         string `json:"referer,omitempty"`
}

func clientIp(r *http.Request) string {
	ip := r.Header.Get("X-Real-Ip")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}

func baseEvent(event uint16, sessionId string, now time.Time) *BaseEvent {
	return &BaseEvent{Event: event, SessionId: sessionId, Context: trackingContext, Timestamp: now.Unix()}
}

func NewSessionEvent(sessionId string, r *http.Request, now time.Time) Session {
	return Session{
		BaseEvent:    baseEvent(EventSession, sessionId, now),
		Language:     r.Header.Get("Accept-Language"),
		UserAgent:    r.UserAgent(),
		Ip:           clientIp(r),
		PragmaHeader: r.Header.Get("Pragma"),
	}
}

func NewSearchEvent(sessionId string, selection types.FacetSelection, resultLen int, cached bool, r *http.Request, now time.Time) SearchEventData {
	return SearchEventData{
		BaseEvent:       baseEvent(EventSearch, sessionId, now),
		PriceRange:      string(selection.PriceRange),
		OS:              string(selection.OS),
		Preference:      string(selection.Preference),
		NumberOfResults: resultLen,
		Cached:          cached,
		Referer:         r.Header.Get("Referer"),
	}
}

func (t *RabbitTracking) TrackSession(sessionId string, r *http.Request) {
	t.send(NewSessionEvent(sessionId, r, t.now()))
}

func (t *RabbitTracking) TrackSearch(sessionId string, selection types.FacetSelection, resultLen int, cached bool, r *http.Request) {
	t.send(NewSearchEvent(sessionId, selection, resultLen, cached, r, t.now()))
}
