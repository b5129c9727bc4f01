package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Timeouts for broker operations.
const (
	connectTimeout    = 30 * time.Second
	publishTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
)

// Publisher sends messages to a broker. Implementations are safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
}

// connection is a Publisher holding a broker session.
type connection interface {
	Publisher
	Disconnect()
}

// dialer opens a broker connection.
type dialer func(ctx context.Context, opts *paho.ClientOptions) (connection, error)

// pahoConnection adapts a paho client to Publisher. Paho serializes writes internally.
type pahoConnection struct {
	client paho.Client
}

// dialPaho connects a paho client and waits for the session to be established.
func dialPaho(ctx context.Context, opts *paho.ClientOptions) (connection, error) {
	client := paho.NewClient(opts)

	if err := wait(ctx, client.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", errConnect, err)
	}

	return &pahoConnection{client: client}, nil
}

// Publish sends payload at QoS 0 and waits for the client to hand it to the network.
func (p *pahoConnection) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	if !p.client.IsConnectionOpen() {
		return errNotConnected
	}

	return wait(ctx, p.client.Publish(topic, 0, retained, payload), publishTimeout)
}

// Disconnect closes the session after letting pending work drain.
func (p *pahoConnection) Disconnect() {
	p.client.Disconnect(disconnectQuiesce)
}

// wait blocks until token completes, ctx ends or timeout elapses.
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTimeout
	}
}
