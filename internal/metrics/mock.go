package metrics

import "sync"

// Mock is a thread-safe mock implementation of the Metrics interface.
type Mock struct {
	mu sync.Mutex

	SettlementsCount    int
	RevertsCount        int
	PreviewsCount       int
	SettlementDurations []float64
	SlackNotifSentCount int
	SlackNotifFailCount int
	StartupTime         float64
}

// NewMock creates a new mock metrics instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) IncSettlements() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettlementsCount++
}

func (m *Mock) IncReverts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RevertsCount++
}

func (m *Mock) IncPreviews() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PreviewsCount++
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettlementDurations = append(m.SettlementDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlackNotifSentCount++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SlackNotifFailCount++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartupTime = duration
}
