package events

import "github.com/kelindar/event"

// SubscribeToChannel forwards bus events of type T into ch for SSE fan-out.
// The send never blocks; a slow SSE client loses events rather than stalling
// publishers.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
