package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	"go.uber.org/zap"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"sovereignctl/internal/model"
)

// Topic prefixes every published message.
const Topic = "state"

const pollInterval = 250 * time.Millisecond

// Publisher fans state changes out on an nng pub socket.
type Publisher struct {
	sock   mangos.Socket
	addr   string
	logger *zap.Logger
}

// Listen opens a pub socket bound to addr, e.g. tcp://127.0.0.1:7711.
func Listen(addr string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Publisher{sock: sock, addr: addr, logger: logger}, nil
}

// Publish sends one state as "state " + JSON.
func (p *Publisher) Publish(st model.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	return p.sock.Send(data)
}

// Run publishes every state received on states until ctx is done or the
// channel is closed. Send errors are logged, not fatal.
func (p *Publisher) Run(ctx context.Context, states <-chan model.State) error {
	p.logger.Info("state publisher listening", zap.String("addr", p.addr))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if err := p.Publish(st); err != nil {
				p.logger.Warn("publish state failed", zap.Error(err))
			}
		}
	}
}

// Close closes the socket.
func (p *Publisher) Close() error {
	return p.sock.Close()
}

// Watch dials addr and calls fn for every state received until ctx is done
// or fn returns an error. The dial is asynchronous, so the publisher may
// start later.
func Watch(ctx context.Context, addr string, fn func(model.State) error) error {
	sock, err := sub.NewSocket()
	if err != nil {
		return fmt.Errorf("sub socket: %w", err)
	}
	defer sock.Close()

	if err := sock.SetOption(mangos.OptionSubscribe, []byte(Topic+" ")); err != nil {
		return err
	}
	if err := sock.SetOption(mangos.OptionRecvDeadline, pollInterval); err != nil {
		return err
	}
	if err := sock.SetOption(mangos.OptionDialAsynch, true); err != nil {
		return err
	}
	if err := sock.Dial(addr); err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := sock.Recv()
		if err != nil {
			if errors.Is(err, mangos.ErrRecvTimeout) {
				continue
			}
			return fmt.Errorf("recv: %w", err)
		}
		st, err := decode(msg)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}

func encode(st model.State) ([]byte, error) {
	body, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	out := make([]byte, 0, len(Topic)+1+len(body))
	out = append(out, Topic...)
	out = append(out, ' ')
	return append(out, body...), nil
}

func decode(msg []byte) (model.State, error) {
	var st model.State
	body, ok := bytes.CutPrefix(msg, []byte(Topic+" "))
	if !ok {
		return st, fmt.Errorf("unexpected message prefix")
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}
