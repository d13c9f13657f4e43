// Package chat models incoming live-stream chat events and the sources that produce them.
//
// The primary source is the websocket feed handled by package server, which delivers
// JSON arrays of events decoded with DecodeBatch. StartTwitchChatSource adds an
// optional second feed: it joins a Twitch channel over IRC and turns each PRIVMSG
// into an Event with Method = MethodChat, so Twitch chat flows through the same
// reply pipeline as the websocket feed.
package chat
