package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storebridge-sync-core/internal/domain"
	"storebridge-sync-core/internal/infrastructure/metrics"
	"storebridge-sync-core/internal/ports"

	"github.com/rs/zerolog"
)

// HealthMonitor aggregates sync activity for the integration health
// endpoint: a 24h window of outcomes from the log store, live totals from
// the notice feed, and the current queue depth.
type HealthMonitor struct {
	logs     ports.SyncLogRepository
	orders   ports.OrderRepository
	invoices ports.InvoiceRepository
	stores   ports.StoreRepository
	queue    ports.JobQueue
	notices  ports.NoticeBus
	metrics  metrics.Recorder
	logger   zerolog.Logger

	mu     sync.RWMutex
	totals map[string]map[domain.SyncStatus]int64
}

// NewHealthMonitor creates the integration health monitor
func NewHealthMonitor(
	logs ports.SyncLogRepository,
	orders ports.OrderRepository,
	invoices ports.InvoiceRepository,
	stores ports.StoreRepository,
	queue ports.JobQueue,
	notices ports.NoticeBus,
	recorder metrics.Recorder,
	logger zerolog.Logger,
) *HealthMonitor {
	return &HealthMonitor{
		logs:     logs,
		orders:   orders,
		invoices: invoices,
		stores:   stores,
		queue:    queue,
		notices:  notices,
		metrics:  recorder,
		logger:   logger,
		totals:   make(map[string]map[domain.SyncStatus]int64),
	}
}

// Start subscribes to the outcome feed and accumulates per-store totals
// until ctx ends.
func (m *HealthMonitor) Start(ctx context.Context) {
	ch := m.notices.Subscribe(ctx, nil)
	go func() {
		for notice := range ch {
			m.mu.Lock()
			byStatus, ok := m.totals[notice.StoreDomain]
			if !ok {
				byStatus = make(map[domain.SyncStatus]int64)
				m.totals[notice.StoreDomain] = byStatus
			}
			byStatus[notice.Status]++
			m.mu.Unlock()
		}
	}()
}

// StoreHealth is one store's slice of the integration health report.
type StoreHealth struct {
	StoreID       string    `json:"store_id"`
	StoreDomain   string    `json:"store_domain"`
	Status        string    `json:"status"`
	Successes24h  int64     `json:"successes_24h"`
	Errors24h     int64     `json:"errors_24h"`
	Incomplete24h int64     `json:"incomplete_24h"`
	LastSuccessAt time.Time `json:"last_success_at"`
}

// HealthReport is the full integration health snapshot.
type HealthReport struct {
	Status      string        `json:"status"`
	QueueDepth  int64         `json:"queue_depth"`
	Stores      []StoreHealth `json:"stores"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Report builds the current health snapshot across all enabled stores.
func (m *HealthMonitor) Report(ctx context.Context) (*HealthReport, error) {
	enabled, err := m.stores.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	depth, err := m.queue.Len(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to read queue depth")
		depth = -1
	} else {
		m.metrics.SetQueueDepth(depth)
	}

	since := time.Now().Add(-24 * time.Hour)
	report := &HealthReport{
		Status:      "good",
		QueueDepth:  depth,
		GeneratedAt: time.Now().UTC(),
	}
	for _, store := range enabled {
		health, herr := m.storeHealth(ctx, store, since)
		if herr != nil {
			return nil, herr
		}
		if health.Status == "critical" {
			report.Status = "critical"
		}
		report.Stores = append(report.Stores, *health)
	}
	return report, nil
}

func (m *HealthMonitor) storeHealth(ctx context.Context, store *domain.Store, since time.Time) (*StoreHealth, error) {
	successes, err := m.logs.CountSince(ctx, store.ID, domain.SyncStatusSuccess, since)
	if err != nil {
		return nil, err
	}
	errors24h, err := m.logs.CountSince(ctx, store.ID, domain.SyncStatusError, since)
	if err != nil {
		return nil, err
	}
	incomplete, err := m.logs.CountSince(ctx, store.ID, domain.SyncStatusIncomplete, since)
	if err != nil {
		return nil, err
	}
	lastSuccess, err := m.logs.LastSuccessAt(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	status := "good"
	if errors24h > 0 && errors24h >= successes {
		status = "critical"
	}

	return &StoreHealth{
		StoreID:       store.ID,
		StoreDomain:   store.Domain,
		Status:        status,
		Successes24h:  successes,
		Errors24h:     errors24h,
		Incomplete24h: incomplete,
		LastSuccessAt: lastSuccess,
	}, nil
}

// LiveTotals returns the outcome counts accumulated from the notice feed
// since the process started.
func (m *HealthMonitor) LiveTotals() map[string]map[domain.SyncStatus]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[domain.SyncStatus]int64, len(m.totals))
	for storeDomain, byStatus := range m.totals {
		copied := make(map[domain.SyncStatus]int64, len(byStatus))
		for status, n := range byStatus {
			copied[status] = n
		}
		out[storeDomain] = copied
	}
	return out
}

// StoreSummary counts one store's synced records for the admin API.
type StoreSummary struct {
	StoreID       string    `json:"store_id"`
	StoreDomain   string    `json:"store_domain"`
	Enabled       bool      `json:"enabled"`
	Orders        int64     `json:"orders"`
	OpenOrders    int64     `json:"open_orders"`
	Invoices      int64     `json:"invoices"`
	Incomplete24h int64     `json:"incomplete_24h"`
	LastSuccessAt time.Time `json:"last_success_at"`
}

// Summary builds the record counts for one store.
func (m *HealthMonitor) Summary(ctx context.Context, storeID string) (*StoreSummary, error) {
	store, err := m.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownStore, storeID)
	}

	orders, err := m.orders.CountByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	open, err := m.orders.CountByStatus(ctx, store.ID, domain.OrderStatusOpen)
	if err != nil {
		return nil, err
	}
	invoices, err := m.invoices.CountByStore(ctx, store.ID)
	if err != nil {
		return nil, err
	}
	incomplete, err := m.logs.CountSince(ctx, store.ID, domain.SyncStatusIncomplete, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	lastSuccess, err := m.logs.LastSuccessAt(ctx, store.ID)
	if err != nil {
		return nil, err
	}

	return &StoreSummary{
		StoreID:       store.ID,
		StoreDomain:   store.Domain,
		Enabled:       store.Enabled,
		Orders:        orders,
		OpenOrders:    open,
		Invoices:      invoices,
		Incomplete24h: incomplete,
		LastSuccessAt: lastSuccess,
	}, nil
}
