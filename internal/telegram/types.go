package telegram

import (
	"errors"

	"github.com/gotd/td/tg"
)

// Error kinds returned by directory and fetcher operations. Handlers map
// them to response codes with errors.Is.
var (
	// ErrNotAuthorized is returned when an operation is attempted before
	// the session reached StatusReady.
	ErrNotAuthorized = errors.New("telegram: not authorized")

	// ErrRetrieval is returned when a dialog or history call failed.
	ErrRetrieval = errors.New("telegram: retrieval failed")

	// ErrTimeout is returned when a call exceeded its deadline.
	ErrTimeout = errors.New("telegram: retrieval timed out")
)

type peerKind int

const (
	peerChat    peerKind = iota // basic group
	peerChannel                 // megagroup (supergroup)
)

// Group is a group-type dialog visible to the session.
// Broadcast channels and direct conversations are never represented here.
type Group struct {
	ID   int64
	Name string

	kind       peerKind
	accessHash int64 // only set for megagroups
}

// InputPeer returns the peer reference for history requests.
func (g Group) InputPeer() tg.InputPeerClass {
	if g.kind == peerChannel {
		return &tg.InputPeerChannel{ChannelID: g.ID, AccessHash: g.accessHash}
	}
	return &tg.InputPeerChat{ChatID: g.ID}
}

// RawMessage is one historical message reduced to the fields the
// aggregator needs.
type RawMessage struct {
	Date       int64 // unix seconds
	HasContent bool  // text or media present
	SenderID   int64 // sending user id, 0 when not resolvable (anonymous admins etc.)
	ViaBotID   int64 // bot relay id, 0 when the message was typed directly
}
