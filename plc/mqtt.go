package plc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const qos = 0

// MQTTSource caches the latest value of every tag the edge gateway publishes
// for one machine under "<prefix>/<machine>/<tag>". Reads are served from the
// cache; a tag that has not been seen, or whose last sample is older than
// staleAfter, reads as unavailable.
type MQTTSource struct {
	client     mqtt.Client
	topic      string
	machine    string
	staleAfter time.Duration

	mu     sync.RWMutex
	values map[string]sample
}

type sample struct {
	value float64
	at    time.Time
}

// NewMQTTSource subscribes to the machine's tag topics on an already
// connected client.
func NewMQTTSource(client mqtt.Client, prefix, machine string, staleAfter time.Duration) (*MQTTSource, error) {
	s := &MQTTSource{
		client:     client,
		topic:      fmt.Sprintf("%s/%s/+", prefix, machine),
		machine:    machine,
		staleAfter: staleAfter,
		values:     make(map[string]sample),
	}
	token := client.Subscribe(s.topic, qos, s.onMessage)
	token.Wait()
	if token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	log.Printf("plc: [%s] subscribed to %s", machine, s.topic)
	return s, nil
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	parts := strings.Split(msg.Topic(), "/")
	tag := parts[len(parts)-1]
	v, err := parsePayload(msg.Payload())
	if err != nil {
		log.Printf("plc: [%s] bad payload on %s: %v", s.machine, msg.Topic(), err)
		return
	}
	s.mu.Lock()
	s.values[tag] = sample{value: v, at: time.Now()}
	s.mu.Unlock()
}

// parsePayload accepts either a bare number or a JSON object with a "value"
// field, which is what the two edge gateway generations publish.
func parsePayload(p []byte) (float64, error) {
	text := strings.TrimSpace(string(p))
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, nil
	}
	var obj struct {
		Value float64 `json:"value"`
	}
	if err := json.Unmarshal(p, &obj); err != nil {
		return 0, fmt.Errorf("unparseable value %q", text)
	}
	return obj.Value, nil
}

func (s *MQTTSource) Read(ctx context.Context, tag string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	smp, ok := s.values[tag]
	s.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s (no sample)", ErrUnavailable, tag)
	}
	if s.staleAfter > 0 && time.Since(smp.at) > s.staleAfter {
		return 0, fmt.Errorf("%w: %s (stale since %s)", ErrUnavailable, tag, smp.at.Format(time.RFC3339))
	}
	return smp.value, nil
}

func (s *MQTTSource) ReadAll(ctx context.Context, tags []string) (map[string]float64, error) {
	return readAll(ctx, s, tags)
}

// Close unsubscribes the machine's topics.
func (s *MQTTSource) Close() {
	token := s.client.Unsubscribe(s.topic)
	token.WaitTimeout(2 * time.Second)
}
