package repository

import (
	"context"

	"fitness-coaching-platform/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
}

// TrainerLinkRepository stores the trainer↔client relation used to authorize
// manual package assignment.
type TrainerLinkRepository interface {
	SaveLink(ctx context.Context, tx Tx, link *model.TrainerLink) error
	Exists(ctx context.Context, tx Tx, trainerID, clientID string) (bool, error)
	ListClients(ctx context.Context, tx Tx, trainerID string) ([]*model.User, error)
}
