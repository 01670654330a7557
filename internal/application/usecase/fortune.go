package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/oracle"
	"falplatform/internal/infrastructure/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTarotCards = 10

// Oracle - источник толкований (OpenAI в проде, заглушка в тестах)
type Oracle interface {
	Interpret(ctx context.Context, req oracle.Request) (string, error)
}

type ReadingInput struct {
	Type     domain.FortuneType
	Question string
	ImageURL string
	Cards    []string
}

type ReadingResult struct {
	Fortune   *domain.Fortune
	Remaining int
}

type FortuneUseCase struct {
	entitlements *EntitlementUseCase
	fortunes     *repository.FortuneRepository
	oracle       Oracle
	logger       *zap.Logger
}

func NewFortuneUseCase(
	eu *EntitlementUseCase,
	fr *repository.FortuneRepository,
	o Oracle,
	logger *zap.Logger,
) *FortuneUseCase {
	return &FortuneUseCase{
		entitlements: eu,
		fortunes:     fr,
		oracle:       o,
		logger:       logger,
	}
}

func validateReading(in ReadingInput) error {
	switch in.Type {
	case domain.FortuneHand, domain.FortuneFace, domain.FortuneCoffee:
		if in.ImageURL == "" {
			return fmt.Errorf("%w: %s reading needs an image", domain.ErrInvalidReading, in.Type)
		}
	case domain.FortuneTarot:
		if len(in.Cards) == 0 || len(in.Cards) > maxTarotCards {
			return fmt.Errorf("%w: tarot needs 1-%d cards", domain.ErrInvalidReading, maxTarotCards)
		}
	case domain.FortuneAIChat:
		if strings.TrimSpace(in.Question) == "" {
			return fmt.Errorf("%w: empty question", domain.ErrInvalidReading)
		}
	default:
		return domain.ErrInvalidFortuneType
	}
	return nil
}

// Read списывает лимит, получает толкование и сохраняет гадание.
// При исчерпанном лимите оракул не вызывается; при сбое оракула единица возвращается.
func (uc *FortuneUseCase) Read(ctx context.Context, userID uuid.UUID, in ReadingInput) (*ReadingResult, error) {
	if err := validateReading(in); err != nil {
		return nil, err
	}

	record, err := uc.entitlements.Consume(ctx, userID, in.Type)
	if err != nil {
		return nil, err
	}

	interpretation, err := uc.oracle.Interpret(ctx, oracle.Request{
		Type:     in.Type,
		Question: in.Question,
		ImageURL: in.ImageURL,
		Cards:    in.Cards,
	})
	if err != nil {
		uc.logger.Error("oracle failed, releasing entitlement",
			zap.String("user_id", userID.String()),
			zap.String("type", string(in.Type)),
			zap.Error(err))
		// Запрос мог быть отменен клиентом, возвращаем единицу в любом случае
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := uc.entitlements.Release(releaseCtx, userID, in.Type); relErr != nil {
			uc.logger.Error("release failed", zap.String("user_id", userID.String()), zap.Error(relErr))
		}
		return nil, errors.Join(domain.ErrOracleUnavailable, err)
	}

	fortune := &domain.Fortune{
		ID:             uuid.New(),
		UserID:         userID,
		Type:           in.Type,
		Question:       in.Question,
		ImageURL:       in.ImageURL,
		Cards:          strings.Join(in.Cards, ","),
		Interpretation: interpretation,
	}
	if err := uc.fortunes.Create(ctx, fortune); err != nil {
		// Толкование уже получено, отдаем его даже без записи в историю
		uc.logger.Error("failed to save fortune", zap.String("user_id", userID.String()), zap.Error(err))
	}

	return &ReadingResult{Fortune: fortune, Remaining: record.Remaining()}, nil
}

func (uc *FortuneUseCase) Ask(ctx context.Context, userID uuid.UUID, message string) (*ReadingResult, error) {
	return uc.Read(ctx, userID, ReadingInput{Type: domain.FortuneAIChat, Question: message})
}

func (uc *FortuneUseCase) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Fortune, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.fortunes.ListByUser(ctx, userID, limit, offset)
}
