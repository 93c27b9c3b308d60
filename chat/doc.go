// Package chat connects the quote database to Twitch chat. It listens for
// command messages over IRC, parses them into invocations, enriches them with
// user, stream, and mention context from Helix, and hands them to the quote
// handler. Replies go back to the same channel.
//
// The listener is the only inbound command connector; one classification pass
// per message means a generic "!quote add ..." and the dedicated "!addquote"
// surface can never both execute the same side effect.
package chat
