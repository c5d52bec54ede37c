// Package broker publishes live-board events to NATS for the websocket
// relay service.
package broker

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/bonniEdo/badminton-go/internal/comm"
)

type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// Emit publishes one live event on the live.events subject. Delivery is
// best-effort; the roster/match transaction has already committed.
func (p *Publisher) Emit(_ context.Context, ev comm.LiveEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(comm.LiveEventSubject, payload); err != nil {
		log.Errorf("Error publishing to subject %s: %s", comm.LiveEventSubject, err)
		return err
	}
	return nil
}
