// Package api exposes the ledger, tally, itinerary and trip engines over
// HTTP. Every action and query is a POST to /api/<Concept>/<action> with a
// JSON body; engine errors are mapped to status codes by their kind.
package api
