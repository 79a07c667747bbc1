package repository

import (
	"context"
	"fmt"

	"watchman/database"
	"watchman/events"
	"watchman/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	watchRepo        service.WatchRepository
	voteRepo         service.VoteRepository
	settingsRepo     service.GuildWatchSettingsRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.watchRepo = newWatchRepositoryWithTx(tx)
	u.voteRepo = newVoteRepositoryWithTx(tx)
	u.settingsRepo = newGuildWatchSettingsRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// WatchRepository returns the watch repository for this unit of work
func (u *unitOfWork) WatchRepository() service.WatchRepository {
	if u.watchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.watchRepo
}

// VoteRepository returns the vote repository for this unit of work
func (u *unitOfWork) VoteRepository() service.VoteRepository {
	if u.voteRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voteRepo
}

// GuildWatchSettingsRepository returns the guild settings repository for this unit of work
func (u *unitOfWork) GuildWatchSettingsRepository() service.GuildWatchSettingsRepository {
	if u.settingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settingsRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
