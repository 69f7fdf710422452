// Package presence keeps track of the live channels of connected accounts.
package presence

import (
	"fmt"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/ahmedramy514/khadamli-darasi/core"
)

var ErrChannelClosed = errors.New("channel closed")

// Event is what gets pushed down a channel.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Channel is one live delivery path to a connected client session.
// Send must not block.
type Channel interface {
	ID() string
	Send(ev Event) error
}

// Registry maps accounts to their live channels. An account may be connected from several devices.
type Registry struct {
	mu        sync.RWMutex
	byAccount map[string]map[string]Channel // {accountID: {handleID: Channel}}
	byHandle  map[string]string             // {handleID: accountID}
	logger    core.Logger
}

func NewRegistry(logger core.Logger) *Registry {
	return &Registry{
		byAccount: make(map[string]map[string]Channel),
		byHandle:  make(map[string]string),
		logger:    logger,
	}
}

// Connect joins ch to the room of accountID.
// A handle already connected for another account is moved.
func (r *Registry) Connect(accountID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := ch.ID()
	if prev, ok := r.byHandle[handle]; ok && prev != accountID {
		r.remove(prev, handle)
	}
	chans, ok := r.byAccount[accountID]
	if !ok {
		chans = make(map[string]Channel)
		r.byAccount[accountID] = chans
	}
	chans[handle] = ch
	r.byHandle[handle] = accountID
}

// Disconnect drops the channel; unknown handles are ignored.
func (r *Registry) Disconnect(handleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if accountID, ok := r.byHandle[handleID]; ok {
		r.remove(accountID, handleID)
	}
}

func (r *Registry) remove(accountID, handleID string) {
	delete(r.byHandle, handleID)
	if chans, ok := r.byAccount[accountID]; ok {
		delete(chans, handleID)
		if len(chans) == 0 {
			delete(r.byAccount, accountID)
		}
	}
}

// ChannelsFor returns a snapshot of the account's live channels, sorted by handle.
// The result is empty, never nil, when the account is offline.
func (r *Registry) ChannelsFor(accountID string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chans := make([]Channel, 0, len(r.byAccount[accountID]))
	for _, ch := range r.byAccount[accountID] {
		chans = append(chans, ch)
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i].ID() < chans[j].ID() })
	return chans
}

func (r *Registry) IsOnline(accountID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAccount[accountID]) > 0
}

// Emit pushes the event to every live channel of accountID and returns how many accepted it.
// Delivery is best-effort: failures are logged and dropped.
func (r *Registry) Emit(accountID, event string, payload interface{}) int {
	ev := Event{Name: event, Payload: payload}
	var delivered int
	for _, ch := range r.ChannelsFor(accountID) {
		if err := ch.Send(ev); err != nil {
			r.logger.Debug(fmt.Sprintf("pushing %q to channel %s of %s: %v", event, ch.ID(), accountID, err))
			continue
		}
		delivered++
	}
	return delivered
}

// ForwardEphemeral relays a non persisted signal (e.g. typing) from senderID to recipientID.
func (r *Registry) ForwardEphemeral(senderID, recipientID, event string, payload interface{}) {
	if payload == nil {
		payload = map[string]string{"from": senderID}
	}
	r.Emit(recipientID, event, payload)
}
