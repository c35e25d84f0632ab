// Package domain defines the race session model and its guard predicates.
//
// A race moves through Open -> Starting -> Running -> Archived. Starting is
// the durable start fence: once StartingAt is set no participant may join,
// even though the authoritative StartedAt instant is only recorded when the
// countdown completes. Archived is terminal and covers both natural
// completion and host cancellation.
package domain
