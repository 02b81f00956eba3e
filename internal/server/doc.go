// Package server implements the realtime layer of the chat service.
//
// A Hub maps each user id to its live Client. Clients read posted messages
// and hand them to the Pipeline, which validates, persists through the Store,
// renders and broadcasts them to every registered Client, the author's
// included. Handlers, routing, configuration and origin checks live in their
// own files.
package server
