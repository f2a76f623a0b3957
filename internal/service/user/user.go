package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/postboard/internal/apperrors"
	"github.com/nkiryanov/postboard/internal/logger"
	"github.com/nkiryanov/postboard/internal/models"
	"github.com/nkiryanov/postboard/internal/repository"
	"github.com/nkiryanov/postboard/internal/service/auth"
	"github.com/nkiryanov/postboard/internal/service/events"
)

type RegisterParams struct {
	Login     string
	Password  string
	FirstName string
	LastName  string
	BirthDate time.Time
}

type UserService struct {
	hasher  auth.PasswordHasher
	storage repository.Storage
	events  events.Emitter
	logger  logger.Logger
}

func NewService(hasher auth.PasswordHasher, storage repository.Storage, emitter events.Emitter, l logger.Logger) *UserService {
	if hasher == nil {
		hasher = auth.DefaultHasher
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &UserService{
		hasher:  hasher,
		storage: storage,
		events:  emitter,
		logger:  l,
	}
}

// Register creates user with its credential in one transaction
// Taken login returns apperrors.ErrAlreadyRegistered
func (s *UserService) Register(ctx context.Context, p RegisterParams) (models.User, error) {
	var user models.User

	exists, err := s.storage.Credential().Exists(ctx, p.Login)
	if err != nil {
		return user, fmt.Errorf("can't check login. Err: %w", err)
	}
	if exists {
		return user, apperrors.ErrAlreadyRegistered
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return user, fmt.Errorf("can't use this as password, Err: %w", err)
	}

	// Login may be taken by concurrent registration after the check above
	// Credential repo returns ErrAlreadyRegistered in such case
	err = s.storage.InTx(ctx, func(st repository.Storage) error {
		user, err = st.User().CreateUser(ctx, repository.CreateUserParams{
			FirstName: p.FirstName,
			LastName:  p.LastName,
			BirthDate: p.BirthDate,
		})
		if err != nil {
			return err
		}

		_, err = st.Credential().CreateCredential(ctx, user.ID, p.Login, hash)
		return err
	})
	if err != nil {
		return models.User{}, fmt.Errorf("can't create user. Err: %w", err)
	}

	s.logger.Info("User registered", "user_id", user.ID)
	s.events.Emit(models.NewEvent(models.EventUserRegistered, user.ID, uuid.Nil))

	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	user, err := s.storage.User().GetUserByID(ctx, id)
	if err != nil {
		return user, fmt.Errorf("can't get user. Err: %w", err)
	}
	return user, nil
}

func (s *UserService) Search(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	users, err := s.storage.User().SearchUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("can't search users. Err: %w", err)
	}
	return users, nil
}

// Deactivate soft deletes the user and revokes its refresh token
// Login of the deactivated user stays reserved
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		if err := st.User().SoftDeleteUser(ctx, id); err != nil {
			return err
		}
		return st.Refresh().DeleteByOwner(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("can't deactivate user. Err: %w", err)
	}

	s.logger.Info("User deactivated", "user_id", id)
	return nil
}
