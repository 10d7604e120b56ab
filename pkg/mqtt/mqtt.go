// Package mqtt bridges the bot to an MQTT broker. Moderation cases and
// verification outcomes are published as events, and other services can
// query the bot through request/response topics.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TopicPrefix is prepended to every topic the bridge uses
const TopicPrefix = "sentinel/"

// Request is the envelope of an incoming or outgoing request
type Request struct {
	CorrelationID string `json:"correlationId"`
	Payload       any    `json:"payload,omitempty"`
}

// Response answers a Request with the same correlation id
type Response struct {
	CorrelationID string `json:"correlationId"`
	Data          any    `json:"data"`
	Error         string `json:"error,omitempty"`
}

// RequestHandler answers a request. The payload always carries "_topic".
type RequestHandler func(payload map[string]any) (any, error)

// MessageHandler receives raw messages from Subscribe
type MessageHandler func(topic string, payload []byte)

type route struct {
	pattern string
	handler MessageHandler
}

// Options configures the broker connection
type Options struct {
	Host     string
	Port     string
	Username string
	Password string
	ClientID string
}

// Bridge owns the broker connection
type Bridge struct {
	client   mqtt.Client
	clientID string

	mu      sync.RWMutex
	pending map[string]chan Response
	routes  []route
}

// NewBridge connects to the broker. A failed first connection is logged and
// retried in the background by paho.
func NewBridge(opts Options) *Bridge {
	b := newBridge(opts.ClientID)

	uniqueID := fmt.Sprintf("%s_%s", opts.ClientID, uuid.NewString())

	clientOpts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", opts.Host, opts.Port)).
		SetClientID(uniqueID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", opts.ClientID), "MQTT")
			b.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	b.client = mqtt.NewClient(clientOpts)

	token := b.client.Connect()
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return b
}

func newBridge(clientID string) *Bridge {
	return &Bridge{
		clientID: clientID,
		pending:  make(map[string]chan Response),
	}
}

// Destroy closes the connection
func (b *Bridge) Destroy() {
	if b.IsConnected() {
		b.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (b *Bridge) IsConnected() bool {
	return b.client != nil && b.client.IsConnected()
}

// Publish encodes payload as JSON and sends it to TopicPrefix+topic
func (b *Bridge) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if b.client == nil {
		return fmt.Errorf("mqtt: not connected")
	}

	token := b.client.Publish(TopicPrefix+topic, 0, false, data)
	token.Wait()
	return token.Error()
}

// Request publishes to request/<topic> and waits for the matching response
func (b *Bridge) Request(topic string, payload any, timeout time.Duration) (any, error) {
	correlationID := uuid.NewString()
	responseTopic := fmt.Sprintf("%sresponse/%s/%s", TopicPrefix, topic, correlationID)

	ch := make(chan Response, 1)
	b.mu.Lock()
	b.pending[correlationID] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, correlationID)
		b.mu.Unlock()
		b.client.Unsubscribe(responseTopic)
	}()

	token := b.client.Subscribe(responseTopic, 0, func(c mqtt.Client, msg mqtt.Message) {
		b.deliver(msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	if err := b.Publish("request/"+topic, Request{CorrelationID: correlationID, Payload: payload}); err != nil {
		return nil, err
	}

	select {
	case response := <-ch:
		if response.Error != "" {
			return nil, fmt.Errorf("%s", response.Error)
		}
		return response.Data, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("la petición a '%s' ha expirado (timeout)", topic)
	}
}

// deliver hands a response to the waiting Request, if any
func (b *Bridge) deliver(raw []byte) bool {
	var response Response
	if err := json.Unmarshal(raw, &response); err != nil {
		logger.Error(fmt.Sprintf("Respuesta MQTT inválida: %v", err), "MQTT")
		return false
	}

	b.mu.RLock()
	ch, ok := b.pending[response.CorrelationID]
	b.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case ch <- response:
		return true
	default:
		return false
	}
}

// On answers requests published to request/<requestTopic>. Wildcards are allowed.
func (b *Bridge) On(requestTopic string, callback RequestHandler) error {
	return b.Subscribe(TopicPrefix+"request/"+requestTopic, func(topic string, payload []byte) {
		responseTopic, response, err := answer(topic, payload, callback)
		if err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}
		if err := b.Publish(responseTopic, response); err != nil {
			logger.Error(fmt.Sprintf("No se pudo responder en %s: %v", responseTopic, err), "MQTT")
		}
	})
}

// answer runs callback for one raw request and builds the response. The
// returned topic is relative to TopicPrefix.
func answer(topic string, raw []byte, callback RequestHandler) (string, Response, error) {
	var request Request
	if err := json.Unmarshal(raw, &request); err != nil {
		return "", Response{}, err
	}

	actualTopic := strings.TrimPrefix(topic, TopicPrefix+"request/")
	responseTopic := fmt.Sprintf("response/%s/%s", actualTopic, request.CorrelationID)

	payload := make(map[string]any)
	if pm, ok := request.Payload.(map[string]any); ok {
		payload = pm
	}
	payload["_topic"] = actualTopic

	data, err := callback(payload)
	if err != nil {
		return responseTopic, Response{CorrelationID: request.CorrelationID, Error: err.Error()}, nil
	}
	return responseTopic, Response{CorrelationID: request.CorrelationID, Data: data}, nil
}

// Subscribe registers handler for every message matching pattern. The
// subscription survives reconnects.
func (b *Bridge) Subscribe(pattern string, handler MessageHandler) error {
	b.mu.Lock()
	b.routes = append(b.routes, route{pattern: pattern, handler: handler})
	b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	token := b.client.Subscribe(pattern, 0, b.onMessage)
	token.Wait()
	return token.Error()
}

// Unsubscribe removes every handler of pattern
func (b *Bridge) Unsubscribe(pattern string) error {
	b.mu.Lock()
	kept := b.routes[:0]
	for _, r := range b.routes {
		if r.pattern != pattern {
			kept = append(kept, r)
		}
	}
	b.routes = kept
	b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	token := b.client.Unsubscribe(pattern)
	token.Wait()
	return token.Error()
}

func (b *Bridge) onMessage(_ mqtt.Client, msg mqtt.Message) {
	b.dispatch(msg.Topic(), msg.Payload())
}

// dispatch runs every handler whose pattern matches topic and reports how many ran
func (b *Bridge) dispatch(topic string, payload []byte) int {
	b.mu.RLock()
	var matched []MessageHandler
	for _, r := range b.routes {
		if topicMatch(r.pattern, topic) {
			matched = append(matched, r.handler)
		}
	}
	b.mu.RUnlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return len(matched)
}

func (b *Bridge) resubscribe() {
	b.mu.RLock()
	patterns := make(map[string]struct{}, len(b.routes))
	for _, r := range b.routes {
		patterns[r.pattern] = struct{}{}
	}
	b.mu.RUnlock()

	for p := range patterns {
		b.client.Subscribe(p, 0, b.onMessage)
	}
}

// topicMatch checks if a received topic matches a pattern (with wildcards)
// '+' matches exactly one topic level
// '#' matches zero or more topic levels and must be the last character
func topicMatch(pattern, topic string) bool {
	patternParts := strings.Split(pattern, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part == "+" {
			continue
		}
		if part != topicParts[i] {
			return false
		}
	}

	return len(patternParts) == len(topicParts)
}
