package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/grouppulse/internal/logger"
)

const (
	// dialogPageSize is the Telegram cap per dialog-list request; the
	// full list is paged via offsets until exhaustion.
	dialogPageSize = 100

	// historyPageSize is the hard Telegram cap per history request;
	// larger fetches are paged via OffsetID.
	historyPageSize = 100

	// defaultCallTimeout bounds a single directory or fetch operation.
	defaultCallTimeout = 30 * time.Second
)

// Client provides high-level group directory and message history
// operations over the authenticated session.
type Client struct {
	manager     *Manager
	rateLimiter *RateLimiter
	callTimeout time.Duration
	log         *logger.Logger
}

// NewClient creates a client wrapper over the session manager.
// rps bounds outgoing api calls.
func NewClient(manager *Manager, rps float64) *Client {
	return &Client{
		manager:     manager,
		rateLimiter: NewRateLimiter(rps, 1),
		callTimeout: defaultCallTimeout,
		log:         logger.Get(),
	}
}

// Status reports the session status.
func (c *Client) Status() Status {
	return c.manager.Status()
}

// dialogsFetcher requests one page of the dialog list.
type dialogsFetcher func(ctx context.Context, offsetDate, offsetID int, offsetPeer tg.InputPeerClass, limit int) (tg.MessagesDialogsClass, error)

// ListGroups returns all groups the session belongs to, projected to
// {id, name}. The dialog list is paged until exhaustion; ordering
// follows whatever the platform returns.
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	api, err := c.manager.API()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	fetch := func(ctx context.Context, offsetDate, offsetID int, offsetPeer tg.InputPeerClass, limit int) (tg.MessagesDialogsClass, error) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, c.classify("rate limit wait", err)
		}

		c.log.Debug().
			Int("offset_date", offsetDate).
			Int("offset_id", offsetID).
			Msg("telegram: fetching dialog page")
		dialogs, err := api.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      limit,
		})
		if err != nil {
			if wait := checkFloodWait(err); wait > 0 {
				c.log.Warn().Int("wait_seconds", wait).Msg("telegram: FLOOD_WAIT on dialog list")
				c.rateLimiter.SetFloodWait(wait)
			}
			return nil, c.classify("list dialogs", err)
		}
		return dialogs, nil
	}

	groups, err := collectGroups(ctx, fetch)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int("groups", len(groups)).Msg("telegram: dialog list fetched")
	return groups, nil
}

// collectGroups pages the dialog list and keeps group-type chats.
// A *tg.MessagesDialogs response or a short page signals exhaustion;
// a slice response carries the offsets for the next page.
func collectGroups(ctx context.Context, fetch dialogsFetcher) ([]Group, error) {
	var out []Group
	seen := make(map[int64]struct{})

	offsetDate := 0
	offsetID := 0
	var offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}

	for {
		res, err := fetch(ctx, offsetDate, offsetID, offsetPeer, dialogPageSize)
		if err != nil {
			return nil, err
		}

		var (
			dialogs  []tg.DialogClass
			messages []tg.MessageClass
			chats    []tg.ChatClass
			users    []tg.UserClass
			full     bool
		)
		switch d := res.(type) {
		case *tg.MessagesDialogs:
			dialogs, messages, chats, users = d.Dialogs, d.Messages, d.Chats, d.Users
			full = true
		case *tg.MessagesDialogsSlice:
			dialogs, messages, chats, users = d.Dialogs, d.Messages, d.Chats, d.Users
		default:
			return nil, fmt.Errorf("%w: unexpected dialogs response %T", ErrRetrieval, res)
		}

		// pinned dialogs can repeat on later pages
		for _, g := range groupsFromChats(chats) {
			if _, dup := seen[g.ID]; dup {
				continue
			}
			seen[g.ID] = struct{}{}
			out = append(out, g)
		}

		if full || len(dialogs) < dialogPageSize {
			return out, nil
		}

		nextDate, nextID, nextPeer, ok := nextDialogOffsets(dialogs, messages, chats, users)
		if !ok {
			return out, nil
		}
		offsetDate, offsetID, offsetPeer = nextDate, nextID, nextPeer
	}
}

// nextDialogOffsets derives the offsets for the next dialog page from
// the last dialog of the current one.
func nextDialogOffsets(dialogs []tg.DialogClass, messages []tg.MessageClass, chats []tg.ChatClass, users []tg.UserClass) (offsetDate, offsetID int, offsetPeer tg.InputPeerClass, ok bool) {
	var last *tg.Dialog
	for i := len(dialogs) - 1; i >= 0; i-- {
		if d, isDialog := dialogs[i].(*tg.Dialog); isDialog {
			last = d
			break
		}
	}
	if last == nil {
		return 0, 0, nil, false
	}

	offsetID = last.TopMessage
	offsetPeer = inputPeerFor(last.Peer, chats, users)
	offsetDate = messageDateFor(messages, last.Peer, last.TopMessage)
	return offsetDate, offsetID, offsetPeer, true
}

// inputPeerFor resolves a bare peer to an input peer using the access
// hashes carried alongside the dialog page.
func inputPeerFor(peer tg.PeerClass, chats []tg.ChatClass, users []tg.UserClass) tg.InputPeerClass {
	switch p := peer.(type) {
	case *tg.PeerUser:
		for _, uc := range users {
			if u, isUser := uc.(*tg.User); isUser && u.ID == p.UserID {
				return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
			}
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}
	case *tg.PeerChannel:
		for _, cc := range chats {
			if ch, isChannel := cc.(*tg.Channel); isChannel && ch.ID == p.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			}
		}
	}
	return &tg.InputPeerEmpty{}
}

// messageDateFor finds the date of the dialog's top message.
func messageDateFor(messages []tg.MessageClass, peer tg.PeerClass, topMessage int) int {
	for _, mc := range messages {
		if messageID(mc) != topMessage {
			continue
		}
		switch m := mc.(type) {
		case *tg.Message:
			if peersEqual(m.PeerID, peer) {
				return m.Date
			}
		case *tg.MessageService:
			if peersEqual(m.PeerID, peer) {
				return m.Date
			}
		}
	}
	return 0
}

func peersEqual(a, b tg.PeerClass) bool {
	switch pa := a.(type) {
	case *tg.PeerUser:
		pb, ok := b.(*tg.PeerUser)
		return ok && pa.UserID == pb.UserID
	case *tg.PeerChat:
		pb, ok := b.(*tg.PeerChat)
		return ok && pa.ChatID == pb.ChatID
	case *tg.PeerChannel:
		pb, ok := b.(*tg.PeerChannel)
		return ok && pa.ChannelID == pb.ChannelID
	}
	return false
}

// RecentMessages fetches up to limit most-recent messages for the given
// group. The batch is bounded by count, not by time; callers discard
// entries outside their window of interest.
func (c *Client) RecentMessages(ctx context.Context, groupID int64, limit int) ([]RawMessage, error) {
	api, err := c.manager.API()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	group, err := c.findGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	peer := group.InputPeer()

	var out []RawMessage
	offsetID := 0
	remaining := limit
	for remaining > 0 {
		batch := remaining
		if batch > historyPageSize {
			batch = historyPageSize
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, c.classify("rate limit wait", err)
		}

		c.log.Debug().
			Int64("group_id", groupID).
			Int("offset_id", offsetID).
			Int("limit", batch).
			Msg("telegram: fetching history page")
		history, err := api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
			Peer:     peer,
			OffsetID: offsetID,
			Limit:    batch,
		})
		if err != nil {
			if wait := checkFloodWait(err); wait > 0 {
				c.log.Warn().Int("wait_seconds", wait).Msg("telegram: FLOOD_WAIT on history fetch")
				c.rateLimiter.SetFloodWait(wait)
			}
			return nil, c.classify("get history", err)
		}

		page := historyMessages(history)
		if len(page) == 0 {
			break
		}

		for _, mc := range page {
			if m, ok := mc.(*tg.Message); ok {
				out = append(out, parseRawMessage(m))
			}
		}

		// pages arrive newest-first; the last entry is the oldest
		offsetID = messageID(page[len(page)-1])
		remaining -= len(page)
		if len(page) < batch {
			break
		}
	}

	c.log.Info().Int64("group_id", groupID).Int("messages", len(out)).Msg("telegram: history fetched")
	return out, nil
}

// findGroup resolves a group id against the current dialog list.
func (c *Client) findGroup(ctx context.Context, groupID int64) (Group, error) {
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return Group{}, err
	}
	for _, g := range groups {
		if g.ID == groupID {
			return g, nil
		}
	}
	return Group{}, fmt.Errorf("%w: group %d not found", ErrRetrieval, groupID)
}

// classify wraps an operation error with the matching error kind.
func (c *Client) classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrRetrieval, op, err)
}

// groupsFromChats keeps group-type chats only: basic groups and
// megagroups. Broadcast channels and forbidden/migrated chats are
// dropped.
func groupsFromChats(chats []tg.ChatClass) []Group {
	var out []Group
	for _, ch := range chats {
		switch v := ch.(type) {
		case *tg.Chat:
			if v.Deactivated {
				// migrated to a supergroup, the channel entry covers it
				continue
			}
			out = append(out, Group{ID: v.ID, Name: v.Title, kind: peerChat})
		case *tg.Channel:
			if !v.Megagroup {
				continue
			}
			out = append(out, Group{ID: v.ID, Name: v.Title, kind: peerChannel, accessHash: v.AccessHash})
		}
	}
	return out
}

// historyMessages unwraps the history response variants.
func historyMessages(h tg.MessagesMessagesClass) []tg.MessageClass {
	switch m := h.(type) {
	case *tg.MessagesMessages:
		return m.Messages
	case *tg.MessagesMessagesSlice:
		return m.Messages
	case *tg.MessagesChannelMessages:
		return m.Messages
	}
	return nil
}

// messageID extracts the id used for history paging.
func messageID(mc tg.MessageClass) int {
	switch m := mc.(type) {
	case *tg.Message:
		return m.ID
	case *tg.MessageService:
		return m.ID
	case *tg.MessageEmpty:
		return m.ID
	}
	return 0
}

// parseRawMessage reduces a telegram message to the aggregation fields.
func parseRawMessage(m *tg.Message) RawMessage {
	var sender int64
	if from, ok := m.GetFromID(); ok {
		if u, ok := from.(*tg.PeerUser); ok {
			sender = u.UserID
		}
	}

	var viaBot int64
	if id, ok := m.GetViaBotID(); ok {
		viaBot = id
	}

	_, hasMedia := m.GetMedia()

	return RawMessage{
		Date:       int64(m.Date),
		HasContent: m.Message != "" || hasMedia,
		SenderID:   sender,
		ViaBotID:   viaBot,
	}
}

// checkFloodWait returns the wait seconds if err is a FLOOD_WAIT error.
func checkFloodWait(err error) int {
	if err == nil {
		return 0
	}

	// error strings are the most reliable signal without deep coupling
	// to gotd's FloodWait definition
	str := err.Error()
	if strings.Contains(str, "FLOOD_WAIT_") {
		var seconds int
		parts := strings.Split(str, "FLOOD_WAIT_")
		if len(parts) > 1 {
			numStr := strings.TrimSpace(parts[1])
			_, _ = fmt.Sscanf(numStr, "%d", &seconds)
			return seconds
		}
	}
	return 0
}
