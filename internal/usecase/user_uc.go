package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

type UserUseCase interface {
	// Register creates a client account. Self-registration never yields
	// trainer or admin roles; those are provisioned out of band.
	Register(ctx context.Context, email, password, name, phone string) (*model.User, error)
	// Authenticate checks the credentials and returns the account.
	// Unknown email and wrong password are indistinguishable to the caller.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// LinkClient attaches a client to a trainer so the trainer may manage
	// the client's package.
	LinkClient(ctx context.Context, trainerID, clientID string) error
	ListClients(ctx context.Context, trainerID string) ([]*model.User, error)
	CountUsers(ctx context.Context) (int, error)
}

type userUC struct {
	users repository.UserRepository
	links repository.TrainerLinkRepository
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, links repository.TrainerLinkRepository, logger *zerolog.Logger) *userUC {
	l := logger.With().Str("component", "UserUC").Logger()
	return &userUC{users: users, links: links, log: &l}
}

func (uc *userUC) Register(ctx context.Context, email, password, name, phone string) (*model.User, error) {
	if len(password) < 8 {
		return nil, domain.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := model.NewUser(uuid.NewString(), email, string(hash), strings.TrimSpace(name), model.RoleClient)
	if err != nil {
		return nil, err
	}
	user.Phone = strings.TrimSpace(phone)
	if err := uc.users.Save(ctx, nil, user); err != nil {
		return nil, err
	}
	uc.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

func (uc *userUC) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := uc.users.FindByEmail(ctx, nil, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (uc *userUC) FindByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return uc.users.FindByID(ctx, nil, id)
}

func (uc *userUC) LinkClient(ctx context.Context, trainerID, clientID string) error {
	if trainerID == "" || clientID == "" || trainerID == clientID {
		return domain.ErrInvalidArgument
	}
	trainer, err := uc.users.FindByID(ctx, nil, trainerID)
	if err != nil {
		return err
	}
	if trainer.Role != model.RoleTrainer && trainer.Role != model.RoleAdmin {
		return domain.ErrForbidden
	}
	if _, err := uc.users.FindByID(ctx, nil, clientID); err != nil {
		return err
	}
	return uc.links.SaveLink(ctx, nil, &model.TrainerLink{
		TrainerID: trainerID,
		ClientID:  clientID,
		CreatedAt: time.Now(),
	})
}

func (uc *userUC) ListClients(ctx context.Context, trainerID string) ([]*model.User, error) {
	return uc.links.ListClients(ctx, nil, trainerID)
}

func (uc *userUC) CountUsers(ctx context.Context) (int, error) {
	return uc.users.CountUsers(ctx, nil)
}
