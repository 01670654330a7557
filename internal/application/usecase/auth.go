package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"falplatform/internal/domain"
	"falplatform/internal/infrastructure/cache"
	"falplatform/internal/infrastructure/repository"
	"falplatform/internal/infrastructure/security"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrTokenRevoked = errors.New("token revoked")

type AuthUseCase struct {
	userRepo     *repository.UserRepository
	tokenCache   *cache.TokenCache
	hasher       *security.PasswordHasher
	tokenManager *security.TokenManager
	roles        map[domain.Role]domain.RoleDefaults
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewAuthUseCase(
	ur *repository.UserRepository,
	tc *cache.TokenCache,
	h *security.PasswordHasher,
	tm *security.TokenManager,
	roles map[domain.Role]domain.RoleDefaults,
	loc *time.Location,
	logger *zap.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		userRepo:     ur,
		tokenCache:   tc,
		hasher:       h,
		tokenManager: tm,
		roles:        roles,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}

func (uc *AuthUseCase) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return uc.CreateAccount(ctx, username, email, password, domain.RoleUser)
}

// CreateAccount заводит пользователя с монетами и лимитами из таблицы ролей
func (uc *AuthUseCase) CreateAccount(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if existing, err := uc.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.ErrUserAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	defaults, ok := uc.roles[role]
	if !ok {
		return nil, domain.ErrInvalidRole
	}

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:                uuid.New(),
		Username:          username,
		Email:             email,
		Password:          hash,
		Role:              role,
		Coins:             defaults.Coins,
		DailyFreeFortunes: defaults.DailyFreeFortunes,
		DailyAIQuestions:  defaults.DailyAIQuestions,
	}
	if err := uc.userRepo.Create(ctx, user, domain.Day(uc.now(), uc.loc)); err != nil {
		return nil, err
	}

	uc.logger.Info("account created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))
	return user, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (string, string, error) {
	user, err := uc.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", "", domain.ErrInvalidCredentials
		}
		return "", "", err
	}
	if err := uc.hasher.Compare(user.Password, password); err != nil {
		return "", "", domain.ErrInvalidCredentials
	}
	return uc.generateAndSaveTokens(ctx, user)
}

func (uc *AuthUseCase) Refresh(ctx context.Context, oldRefreshToken string) (string, string, error) {
	userID, err := uc.tokenManager.ValidateRefreshToken(oldRefreshToken)
	if err != nil {
		return "", "", domain.ErrUnauthenticated
	}

	// Старый токен забираем атомарно: при гонке пройдет только один запрос
	cachedID, err := uc.tokenCache.ConsumeRefresh(ctx, oldRefreshToken)
	if err != nil {
		if errors.Is(err, cache.ErrTokenNotFound) {
			return "", "", ErrTokenRevoked
		}
		return "", "", fmt.Errorf("consume refresh token: %w", err)
	}
	if cachedID != userID {
		return "", "", ErrTokenRevoked
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return "", "", domain.ErrUnauthenticated
	}
	// Роль берем из базы: она могла поменяться с момента логина
	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return "", "", err
	}
	return uc.generateAndSaveTokens(ctx, user)
}

func (uc *AuthUseCase) Logout(ctx context.Context, refreshToken string) error {
	return uc.tokenCache.DeleteRefresh(ctx, refreshToken)
}

func (uc *AuthUseCase) ValidateAccess(token string) (security.Claims, error) {
	return uc.tokenManager.ValidateAccessToken(token)
}

// CurrentRole - роль из базы, а не из токена
func (uc *AuthUseCase) CurrentRole(ctx context.Context, userID uuid.UUID) (domain.Role, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (uc *AuthUseCase) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *AuthUseCase) generateAndSaveTokens(ctx context.Context, user *domain.User) (string, string, error) {
	access, refresh, err := uc.tokenManager.Generate(user.ID.String(), string(user.Role))
	if err != nil {
		return "", "", err
	}

	if err := uc.tokenCache.SaveRefresh(ctx, user.ID.String(), refresh); err != nil {
		return "", "", fmt.Errorf("save refresh token: %w", err)
	}
	return access, refresh, nil
}
