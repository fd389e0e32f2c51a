package slack

import (
	"strings"
	"sync"

	"github.com/slack-go/slack"
)

// channelIndex caches channels by name and ID. It is safe for concurrent use.
type channelIndex struct {
	mu     sync.RWMutex
	names  map[string]slack.Channel
	ids    map[string]slack.Channel
	loadMu sync.Mutex
	loaded bool
}

func newIndex() *channelIndex {
	return &channelIndex{
		names: make(map[string]slack.Channel),
		ids:   make(map[string]slack.Channel),
	}
}

// Add records channels, replacing earlier entries with the same ID.
func (ix *channelIndex) Add(channels []slack.Channel) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, ch := range channels {
		if ch.ID == "" {
			continue
		}
		name := ch.NameNormalized
		if name == "" {
			name = ch.Name
		}
		if name != "" {
			ix.names[strings.ToLower(name)] = ch
		}
		ix.ids[strings.ToLower(ch.ID)] = ch
	}
}

// Load runs fill once. A failed fill is retried by the next caller.
func (ix *channelIndex) Load(fill func() error) error {
	ix.loadMu.Lock()
	defer ix.loadMu.Unlock()
	if ix.loaded {
		return nil
	}
	if err := fill(); err != nil {
		return err
	}
	ix.loaded = true
	return nil
}

/*
Get a channel by name
*/
func (ix *channelIndex) GetByName(name string) (slack.Channel, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ch, ok := ix.names[strings.ToLower(name)]
	return ch, ok
}

/*
Get a channel by ID
*/
func (ix *channelIndex) GetByID(id string) (slack.Channel, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ch, ok := ix.ids[strings.ToLower(id)]
	return ch, ok
}

// Size returns the number of channels in the cache
func (ix *channelIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}
