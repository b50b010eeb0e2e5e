// Package broadcast provides a generic pub/sub fan-out with non-blocking
// delivery.
//
// The Broadcaster/Subscriber interfaces allow pluggable backends; the
// in-memory implementation delivers to buffered per-subscriber channels
// and drops messages for slow consumers rather than blocking the
// publisher. Subscriptions are cleaned up when their context ends.
//
//	b := broadcast.NewMemoryBroadcaster[Event](100)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			handle(msg.Data)
//		}
//	}()
//
//	b.Broadcast(ctx, broadcast.Message[Event]{Data: ev})
package broadcast
