package correlation

import (
	"context"
	"log"
	"time"

	"github.com/guildware/quorum/service/messaging"
)

// Pump consumes inbound interaction events from queue and resolves them
// against the broker until ctx is done. Events are handled strictly in
// consumption order, which preserves the per-session delivery guarantee.
// It returns a stop function; calling it (or cancelling ctx) ends the loop.
func Pump(ctx context.Context, broker *Broker, queue messaging.Queue[Event]) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		for {
			message, err := queue.Consume(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("correlation: consume failed: %v", err)
				continue
			}
			if message == nil {
				// Polling vendor (fs) with an empty queue.
				time.Sleep(20 * time.Millisecond)
				continue
			}
			// A non-matching event is still consumed: it belongs to a closed
			// or foreign dialog and must never be redelivered.
			broker.Resolve(message.T())
			if err := message.Ack(); err != nil {
				log.Printf("correlation: ack failed: %v", err)
			}
		}
	}()
	return cancel
}
