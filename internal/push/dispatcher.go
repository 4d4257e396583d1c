package push

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/notification-hub/internal/model"
)

// Dispatcher encodes events and delivers them through a Registry.
// A miss (no channel, or a failed write) is logged and never returned as an
// error: persistence has already happened by the time anything is pushed.
type Dispatcher struct {
	registry Registry
	logger   *slog.Logger
}

func NewDispatcher(registry Registry, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Frame renders ev as one server-sent-event frame: "data: <json>\n\n".
func Frame(ev model.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, '\n', '\n')
	return frame, nil
}

// Send delivers ev to one user and reports whether it was accepted.
func (d *Dispatcher) Send(userID string, ev model.Event) bool {
	frame, err := Frame(ev)
	if err != nil {
		d.logger.Error("failed to encode event", slog.String("error", err.Error()))
		return false
	}
	return d.send(userID, ev, frame)
}

// SendMany delivers ev to each user independently and returns how many
// accepted it.
func (d *Dispatcher) SendMany(userIDs []string, ev model.Event) int {
	if len(userIDs) == 0 {
		return 0
	}
	frame, err := Frame(ev)
	if err != nil {
		d.logger.Error("failed to encode event", slog.String("error", err.Error()))
		return 0
	}

	delivered := 0
	for _, id := range userIDs {
		if d.send(id, ev, frame) {
			delivered++
		}
	}
	return delivered
}

// BroadcastAll delivers ev to every registered user.
func (d *Dispatcher) BroadcastAll(ev model.Event) int {
	return d.SendMany(d.registry.UserIDs(), ev)
}

// Connections reports how many users hold a live channel.
func (d *Dispatcher) Connections() int {
	return d.registry.Count()
}

func (d *Dispatcher) send(userID string, ev model.Event, frame []byte) bool {
	if d.registry.Send(userID, frame) {
		return true
	}
	d.logger.Debug("delivery miss",
		slog.String("user_id", userID),
		slog.String("event", ev.Type),
	)
	return false
}
