package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/tapeo-pos/server/internal/availability"
	"github.com/tapeo-pos/server/internal/notify"
)

type Notifier interface {
	Broadcast(t notify.EventType)
}

type Service interface {
	All(ctx context.Context) (map[string]any, error)
	Apply(ctx context.Context, values map[string]any) error
	String(ctx context.Context, key, fallback string) (string, error)
	Number(ctx context.Context, key string, fallback float64) (float64, error)
	Bool(ctx context.Context, key string, fallback bool) (bool, error)
	JSON(ctx context.Context, key string, dst any) error
	StoreConfig(ctx context.Context) (availability.StoreConfig, error)
}

type service struct {
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier) Service {
	return &service{repo: repo, notifier: notifier}
}

// All returns every setting decoded to its native type, keyed by name.
func (s *service) All(ctx context.Context) (map[string]any, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to load settings: %w", err)
	}

	out := make(map[string]any, len(rows))
	for _, row := range rows {
		v, err := decode(row)
		if err != nil {
			log.Warn().Err(err).Str("key", row.Key).Msg("Skipping undecodable setting")
			continue
		}
		out[row.Key] = v
	}
	return out, nil
}

// Apply upserts the values in one write, inferring each stored type
// from the Go type json.Unmarshal produced. Either every key is
// applied or none is. Broadcasts SETTINGS_UPDATED once on success.
func (s *service) Apply(ctx context.Context, values map[string]any) error {
	rows := make([]Setting, 0, len(values))
	for key, value := range values {
		setting, err := encode(key, value)
		if err != nil {
			return fmt.Errorf("service: %w", err)
		}
		rows = append(rows, setting)
	}

	if err := s.repo.Upsert(ctx, rows); err != nil {
		return fmt.Errorf("service: failed to store settings: %w", err)
	}

	log.Info().Int("count", len(values)).Msg("Settings updated")
	s.notifier.Broadcast(notify.EventSettingsUpdated)
	return nil
}

func (s *service) String(ctx context.Context, key, fallback string) (string, error) {
	row, err := s.get(ctx, key, TypeString)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return fallback, nil
		}
		return "", err
	}
	return row.Value, nil
}

func (s *service) Number(ctx context.Context, key string, fallback float64) (float64, error) {
	row, err := s.get(ctx, key, TypeNumber)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return fallback, nil
		}
		return 0, err
	}
	n, err := strconv.ParseFloat(row.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("service: setting %q is not a number: %w", key, err)
	}
	return n, nil
}

func (s *service) Bool(ctx context.Context, key string, fallback bool) (bool, error) {
	row, err := s.get(ctx, key, TypeBoolean)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return fallback, nil
		}
		return false, err
	}
	return row.Value == "true", nil
}

func (s *service) JSON(ctx context.Context, key string, dst any) error {
	row, err := s.get(ctx, key, TypeJSON)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(row.Value), dst); err != nil {
		return fmt.Errorf("service: setting %q is not valid json: %w", key, err)
	}
	return nil
}

// StoreConfig assembles the availability gate's input from the
// well-known settings keys. Missing keys fall back to permissive
// defaults except the schedule, which must be configured.
func (s *service) StoreConfig(ctx context.Context) (availability.StoreConfig, error) {
	cfg := availability.StoreConfig{}

	if err := s.JSON(ctx, KeySchedule, &cfg.Schedule); err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			return cfg, err
		}
	}

	enabled, err := s.Bool(ctx, KeyOrdersOn, true)
	if err != nil {
		return cfg, err
	}
	cfg.OrdersEnabled = enabled

	prep, err := s.Number(ctx, KeyPrepMinutes, 30)
	if err != nil {
		return cfg, err
	}
	cfg.PrepMinutes = int(prep)

	return cfg, nil
}

func (s *service) get(ctx context.Context, key string, want ValueType) (*Setting, error) {
	row, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("service: failed to load setting %q: %w", key, err)
	}
	if row.Type != want {
		return nil, fmt.Errorf("service: setting %q has type %s, want %s", key, row.Type, want)
	}
	return row, nil
}

func decode(s Setting) (any, error) {
	switch s.Type {
	case TypeString:
		return s.Value, nil
	case TypeNumber:
		return strconv.ParseFloat(s.Value, 64)
	case TypeBoolean:
		return s.Value == "true", nil
	case TypeJSON:
		var v any
		if err := json.Unmarshal([]byte(s.Value), &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown setting type %q", s.Type)
	}
}

func encode(key string, value any) (Setting, error) {
	switch v := value.(type) {
	case string:
		return Setting{Key: key, Value: v, Type: TypeString}, nil
	case bool:
		return Setting{Key: key, Value: strconv.FormatBool(v), Type: TypeBoolean}, nil
	case float64:
		return Setting{Key: key, Value: strconv.FormatFloat(v, 'f', -1, 64), Type: TypeNumber}, nil
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return Setting{}, fmt.Errorf("failed to encode setting %q: %w", key, err)
		}
		return Setting{Key: key, Value: string(raw), Type: TypeJSON}, nil
	default:
		return Setting{}, fmt.Errorf("unsupported value for setting %q: %T", key, value)
	}
}
