package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapeo-pos/server/internal/notify"
	"github.com/tapeo-pos/server/internal/settings"
)

type memoryRepository struct {
	rows    map[string]settings.Setting
	upserts int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{rows: make(map[string]settings.Setting)}
}

func (m *memoryRepository) Get(ctx context.Context, key string) (*settings.Setting, error) {
	s, ok := m.rows[key]
	if !ok {
		return nil, settings.ErrSettingNotFound
	}
	return &s, nil
}

func (m *memoryRepository) All(ctx context.Context) ([]settings.Setting, error) {
	out := make([]settings.Setting, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryRepository) Upsert(ctx context.Context, rows []settings.Setting) error {
	m.upserts++
	for _, s := range rows {
		m.rows[s.Key] = s
	}
	return nil
}

type mockNotifier struct {
	events []notify.EventType
}

func (m *mockNotifier) Broadcast(t notify.EventType) { m.events = append(m.events, t) }

func TestApplyAndAllRoundTrip(t *testing.T) {
	repo := newMemoryRepository()
	notifier := &mockNotifier{}
	svc := settings.NewService(repo, notifier)
	ctx := context.Background()

	err := svc.Apply(ctx, map[string]any{
		"store_name":        "Tapeo",
		"orders_enabled":    false,
		"prep_time_minutes": float64(45),
		"schedule":          map[string]any{"monday": map[string]any{"closed": true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []notify.EventType{notify.EventSettingsUpdated}, notifier.events)

	all, err := svc.All(ctx)
	require.NoError(t, err)

	assert.Equal(t, "Tapeo", all["store_name"])
	assert.Equal(t, false, all["orders_enabled"])
	assert.Equal(t, float64(45), all["prep_time_minutes"])
	assert.Equal(t, map[string]any{"monday": map[string]any{"closed": true}}, all["schedule"])
}

func TestApplyRejectsUnsupportedValues(t *testing.T) {
	repo := newMemoryRepository()
	notifier := &mockNotifier{}
	svc := settings.NewService(repo, notifier)

	// One good key alongside a bad one: nothing may reach the store.
	err := svc.Apply(context.Background(), map[string]any{
		"orders_enabled": true,
		"weird":          struct{}{},
	})
	assert.Error(t, err)
	assert.Empty(t, repo.rows)
	assert.Zero(t, repo.upserts)
	assert.Empty(t, notifier.events)
}

func TestApplyWritesAllKeysAtOnce(t *testing.T) {
	repo := newMemoryRepository()
	svc := settings.NewService(repo, &mockNotifier{})

	err := svc.Apply(context.Background(), map[string]any{
		"orders_enabled":    true,
		"prep_time_minutes": float64(20),
		"store_name":        "Tapeo",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.upserts)
	assert.Len(t, repo.rows, 3)
}

func TestTypedGettersFallBack(t *testing.T) {
	svc := settings.NewService(newMemoryRepository(), &mockNotifier{})
	ctx := context.Background()

	s, err := svc.String(ctx, "missing", "default")
	require.NoError(t, err)
	assert.Equal(t, "default", s)

	n, err := svc.Number(ctx, "missing", 30)
	require.NoError(t, err)
	assert.Equal(t, float64(30), n)

	b, err := svc.Bool(ctx, "missing", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestTypedGettersRejectTypeMismatch(t *testing.T) {
	repo := newMemoryRepository()
	repo.rows["prep_time_minutes"] = settings.Setting{
		Key: "prep_time_minutes", Value: "soon", Type: settings.TypeString,
	}
	svc := settings.NewService(repo, &mockNotifier{})

	_, err := svc.Number(context.Background(), "prep_time_minutes", 30)
	assert.Error(t, err)
}

func TestStoreConfig(t *testing.T) {
	repo := newMemoryRepository()
	svc := settings.NewService(repo, &mockNotifier{})
	ctx := context.Background()

	// Defaults when nothing is configured.
	cfg, err := svc.StoreConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.OrdersEnabled)
	assert.Equal(t, 30, cfg.PrepMinutes)
	assert.Empty(t, cfg.Schedule)

	err = svc.Apply(ctx, map[string]any{
		"orders_enabled":    false,
		"prep_time_minutes": float64(45),
		"schedule": map[string]any{
			"friday": map[string]any{"open": "19:00", "close": "00:30"},
		},
	})
	require.NoError(t, err)

	cfg, err = svc.StoreConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.OrdersEnabled)
	assert.Equal(t, 45, cfg.PrepMinutes)
	assert.Equal(t, "19:00", cfg.Schedule["friday"].Open)
	assert.Equal(t, "00:30", cfg.Schedule["friday"].Close)
}
