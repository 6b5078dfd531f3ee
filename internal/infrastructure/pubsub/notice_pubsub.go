package pubsub

import (
	"context"
	"fmt"
	"sync"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// noticeChannel represents one subscription
type noticeChannel struct {
	id      string
	filter  *domain.NoticeFilter
	notices chan *domain.SyncNotice
	ctx     context.Context
	cancel  context.CancelFunc
}

// NoticePubSub fans sync notices out to in-process subscribers. Delivery is
// best-effort: a subscriber that stops draining its channel loses notices
// rather than stalling the publishers.
type NoticePubSub struct {
	mu       sync.RWMutex
	channels map[string]*noticeChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

// NewNoticePubSub creates a new notice pub/sub system
func NewNoticePubSub(logger zerolog.Logger) *NoticePubSub {
	return &NoticePubSub{
		channels: make(map[string]*noticeChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription that lives until the context is
// cancelled.
func (ps *NoticePubSub) Subscribe(ctx context.Context, filter *domain.NoticeFilter) <-chan *domain.SyncNotice {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &noticeChannel{
		id:      id,
		filter:  filter,
		notices: make(chan *domain.SyncNotice, 10), // Buffered channel
		ctx:     subCtx,
		cancel:  cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Notice subscription created")

	// Cleanup when context is cancelled
	go func() {
		<-subCtx.Done()
		ps.unsubscribe(id)
	}()

	return channel.notices
}

// unsubscribe removes a subscription channel
func (ps *NoticePubSub) unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.notices)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Notice subscription removed")
}

// Publish broadcasts a notice to all matching subscribers
func (ps *NoticePubSub) Publish(notice *domain.SyncNotice) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	publishedCount := 0
	for _, channel := range ps.channels {
		if ps.matchesFilter(notice, channel.filter) {
			select {
			case channel.notices <- notice:
				publishedCount++
			case <-channel.ctx.Done():
				// Channel is closing, skip
			default:
				// Channel buffer full, skip (non-blocking)
				ps.logger.Warn().
					Str("channelId", channel.id).
					Msg("Channel buffer full, dropping notice")
			}
		}
	}

	if publishedCount > 0 {
		ps.logger.Debug().
			Str("method", notice.Method).
			Str("shop", notice.StoreDomain).
			Int("subscribers", publishedCount).
			Msg("Published sync notice to subscribers")
	}
}

// matchesFilter checks if a notice matches the subscription filter
func (ps *NoticePubSub) matchesFilter(notice *domain.SyncNotice, filter *domain.NoticeFilter) bool {
	if filter == nil {
		return true // No filter, match all
	}

	if len(filter.Statuses) > 0 {
		statusMatch := false
		for _, status := range filter.Statuses {
			if notice.Status == status {
				statusMatch = true
				break
			}
		}
		if !statusMatch {
			return false
		}
	}

	if filter.StoreDomain != "" && notice.StoreDomain != filter.StoreDomain {
		return false
	}

	return true
}

// generateID generates a unique channel ID
func (ps *NoticePubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}

// GetStats returns pub/sub statistics
func (ps *NoticePubSub) GetStats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	return map[string]interface{}{
		"active_subscriptions": len(ps.channels),
	}
}

var _ ports.NoticeBus = (*NoticePubSub)(nil)
