// Package ledger хранит купленные ритуалы всех пользователей под одним ключом Redis.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"falplatform/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	Key        = "purchasedRituals"
	maxRetries = 10
)

var errTooManyConflicts = errors.New("ledger: too many concurrent writers")

// ErrCorrupted - значение ключа не читается как список покупок, повтор не поможет
var ErrCorrupted = errors.New("ledger data corrupted")

type Ledger struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func New(client *redis.Client, logger *zap.Logger) *Ledger {
	return &Ledger{client: client, logger: logger, now: time.Now}
}

// Available - достучались ли до хранилища. Пустой List при false значит "нет данных".
func (l *Ledger) Available(ctx context.Context) bool {
	return l.client.Ping(ctx).Err() == nil
}

func (l *Ledger) List(ctx context.Context, userID string) []domain.PurchasedRitual {
	all, err := l.readAll(ctx, l.client)
	if err != nil {
		l.logger.Warn("ledger read failed, returning empty list",
			zap.String("user_id", userID), zap.Error(err))
		return []domain.PurchasedRitual{}
	}
	return filterByUser(all, userID)
}

func (l *Ledger) Has(ctx context.Context, userID, ritualID string) bool {
	for _, p := range l.List(ctx, userID) {
		if p.RitualID == ritualID {
			return true
		}
	}
	return false
}

// Add записывает новую покупку. Повторная покупка того же ритуала дает отдельную запись.
func (l *Ledger) Add(ctx context.Context, userID, ritualID string) (domain.PurchasedRitual, error) {
	return l.Record(ctx, domain.NewPurchaseID(), userID, ritualID)
}

// Record добавляет покупку с заданным id. Если такой id уже есть, возвращает
// существующую запись: так повторная доставка вебхука не дублирует покупку.
func (l *Ledger) Record(ctx context.Context, purchaseID, userID, ritualID string) (domain.PurchasedRitual, error) {
	var result domain.PurchasedRitual
	err := l.update(ctx, func(all []domain.PurchasedRitual) ([]domain.PurchasedRitual, bool) {
		for _, p := range all {
			if p.ID == purchaseID {
				result = p
				return all, false
			}
		}
		result = domain.PurchasedRitual{
			ID:           purchaseID,
			RitualID:     ritualID,
			PurchaseDate: l.now().UTC(),
			UserID:       userID,
		}
		return append(all, result), true
	})
	if err != nil {
		return domain.PurchasedRitual{}, err
	}
	return result, nil
}

// Remove удаляет все записи ритуала у пользователя
func (l *Ledger) Remove(ctx context.Context, userID, ritualID string) error {
	return l.update(ctx, func(all []domain.PurchasedRitual) ([]domain.PurchasedRitual, bool) {
		kept := all[:0:0]
		for _, p := range all {
			if p.UserID == userID && p.RitualID == ritualID {
				continue
			}
			kept = append(kept, p)
		}
		return kept, len(kept) != len(all)
	})
}

func (l *Ledger) Clear(ctx context.Context, userID string) error {
	return l.update(ctx, func(all []domain.PurchasedRitual) ([]domain.PurchasedRitual, bool) {
		kept := all[:0:0]
		for _, p := range all {
			if p.UserID != userID {
				kept = append(kept, p)
			}
		}
		return kept, len(kept) != len(all)
	})
}

// update - read-modify-write всего списка под WATCH. При конфликте повторяем.
func (l *Ledger) update(ctx context.Context, mutate func([]domain.PurchasedRitual) ([]domain.PurchasedRitual, bool)) error {
	txf := func(tx *redis.Tx) error {
		all, err := l.readAll(ctx, tx)
		if err != nil {
			return err
		}
		next, changed := mutate(all)
		if !changed {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, Key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := l.client.Watch(ctx, txf, Key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			l.logger.Error("ledger value is corrupted", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		l.logger.Error("ledger write failed", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, errTooManyConflicts)
}

func (l *Ledger) readAll(ctx context.Context, c redis.Cmdable) ([]domain.PurchasedRitual, error) {
	raw, err := c.Get(ctx, Key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.PurchasedRitual{}, nil
		}
		return nil, err
	}
	var all []domain.PurchasedRitual
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func filterByUser(all []domain.PurchasedRitual, userID string) []domain.PurchasedRitual {
	out := make([]domain.PurchasedRitual, 0)
	for _, p := range all {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}
