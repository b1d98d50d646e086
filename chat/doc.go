// Package chat implements the business routes of the chat server: account
// signup and signin, chats, and messages.
//
// Routes other than the index, signup and signin sit behind the
// authentication stage of the request pipeline and read the caller with
// authctx.RequireIdentity. Chat changes are published to a notify.Publisher
// so that connected members receive them as events.
package chat
