// Package admission bounds the number of tool processes running at once.
//
// A Gate hands out Tickets; each running process holds exactly one Ticket
// and releases it on every exit path. A Pool shards requests across several
// independent gates so that total concurrency is workers × capacity.
package admission
