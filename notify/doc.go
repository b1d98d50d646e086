// Package notify streams chat changes to connected users over Server-Sent
// Events.
//
// A Hub keeps the open streams of every user. Handlers publish an Event
// addressed to the members of a chat and the hub copies the encoded frame
// into each recipient's buffer. A stream that falls ClientBuffer frames
// behind misses events rather than stalling the others.
//
//	comp := notify.NewComponent(log)
//	registry.Register(comp)
//	notify.NewHandler(comp.Hub(), log, 0).Register(engine)
//
//	_ = comp.Hub().Publish(ctx, notify.MessageCreated(chatID, members, msg))
package notify
