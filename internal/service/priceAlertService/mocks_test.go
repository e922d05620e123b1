package priceAlertService

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/internal/model"
)

type mockRepo struct {
	mu        sync.Mutex
	positions map[int64]model.Position
	settings  map[string]string
	nextID    int64
	txCalls   int
	err       error
}

func newMockRepo() *mockRepo {
	return &mockRepo{positions: make(map[int64]model.Position), settings: make(map[string]string), nextID: 1}
}

func (m *mockRepo) CreatePosition(_ context.Context, p model.Position) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	p.ID = m.nextID
	m.nextID++
	m.positions[p.ID] = p
	return p.ID, nil
}

func (m *mockRepo) GetPosition(_ context.Context, id int64) (model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.positions[id]
	if !ok {
		return model.Position{}, repository.ErrNotFound
	}
	return p, nil
}

func (m *mockRepo) ListOpenPositions(_ context.Context) ([]model.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	res := make([]model.Position, 0, len(m.positions))
	for _, p := range m.positions {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *mockRepo) UpdatePosition(_ context.Context, p model.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[p.ID]; !ok {
		return repository.ErrNotFound
	}
	m.positions[p.ID] = p
	return nil
}

func (m *mockRepo) DeletePosition(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.positions, id)
	return nil
}

func (m *mockRepo) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	return v, ok, nil
}

func (m *mockRepo) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *mockRepo) ListSettings(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make(map[string]string, len(m.settings))
	for k, v := range m.settings {
		res[k] = v
	}
	return res, nil
}

func (m *mockRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	m.mu.Lock()
	m.txCalls++
	m.mu.Unlock()
	return tFunc(ctx)
}

type mockQuotes struct {
	mu     sync.Mutex
	prices map[string]float64
	names  map[string]string
	calls  int
}

func newMockQuotes() *mockQuotes {
	return &mockQuotes{prices: make(map[string]float64), names: make(map[string]string)}
}

func (m *mockQuotes) Fetch(_ context.Context, code string) model.Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return model.Quote{Code: code, Name: m.names[code], Price: m.prices[code]}
}

func (m *mockQuotes) FetchPrice(_ context.Context, code string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.prices[code]
}

func (m *mockQuotes) Validate(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type mockDirectory struct {
	queries []string
}

func (m *mockDirectory) Search(_ context.Context, query string) []model.Security {
	m.queries = append(m.queries, query)
	return []model.Security{{Code: "600519", Name: "贵州茅台", Market: model.MarketShanghai}}
}

type mockNotifier struct {
	mu     sync.Mutex
	events []model.AlertEvent
	err    error
}

func (m *mockNotifier) Notify(_ context.Context, ev model.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

type mockReports struct {
	analysis model.PortfolioAnalysis
}

func (m *mockReports) Generate(_ context.Context, analysis model.PortfolioAnalysis) ([]byte, string, error) {
	m.analysis = analysis
	return []byte("xlsx"), ".xlsx", nil
}

type mockBackup struct {
	uploaded  map[string][]byte
	pruned    int
	pruneErr  error
	uploadErr error
}

func (m *mockBackup) UploadFile(_ context.Context, reader io.Reader, filename string) (string, error) {
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if m.uploaded == nil {
		m.uploaded = make(map[string][]byte)
	}
	m.uploaded[filename] = b
	return "https://backup/" + filename, nil
}

func (m *mockBackup) DeleteOldFiles(_ context.Context) error {
	m.pruned++
	return m.pruneErr
}

var errBoom = errors.New("boom")
