package service

import (
	"context"
	"fmt"

	"watchman/events"
	"watchman/models"

	log "github.com/sirupsen/logrus"
)

type voteService struct {
	uowFactory UnitOfWorkFactory
	clock      Clock
}

// NewVoteService creates a new vote tally service
func NewVoteService(uowFactory UnitOfWorkFactory, clock Clock) VoteService {
	return &voteService{
		uowFactory: uowFactory,
		clock:      clock,
	}
}

// CastVote records one vote per voter per watch. The vote row insert and the
// counter increment happen in one transaction; the increment is guarded by
// the watch still being in voting status, so a vote racing a concurrent
// finalization fails fast instead of incrementing a stale tally.
func (s *voteService) CastVote(ctx context.Context, watchID, voterID int64, choice models.VoteChoice) (models.Tally, error) {
	if !choice.IsValid() {
		return models.Tally{}, fmt.Errorf("invalid vote choice %q", choice)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return models.Tally{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByID(ctx, watchID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return models.Tally{}, ErrWatchNotFound
	}
	if watch.Status != models.WatchStatusVoting {
		return models.Tally{}, ErrNotInVotingState
	}

	vote := &models.Vote{
		WatchID: watchID,
		GuildID: watch.GuildID,
		VoterID: voterID,
		Choice:  choice,
	}
	if err := uow.VoteRepository().Create(ctx, vote); err != nil {
		// ErrAlreadyVoted surfaces unchanged
		return models.Tally{}, err
	}

	ok, err := uow.WatchRepository().IncrementVoteCount(ctx, watchID, choice)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to increment vote count: %w", err)
	}
	if !ok {
		// The watch left voting between our read and the increment; the
		// rollback discards the vote row
		return models.Tally{}, ErrNotInVotingState
	}

	tally, err := uow.VoteRepository().CountByWatch(ctx, watchID)
	if err != nil {
		return models.Tally{}, fmt.Errorf("failed to count votes: %w", err)
	}

	uow.EventBus().Publish(events.VoteCastEvent{
		WatchID:        watchID,
		GuildID:        watch.GuildID,
		VoterID:        voterID,
		Choice:         choice,
		GuiltyVotes:    tally.GuiltyVotes,
		NotGuiltyVotes: tally.NotGuiltyVotes,
	})

	if err := uow.Commit(); err != nil {
		return models.Tally{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return tally, nil
}

// FinalizeVoting closes the voting window and applies the verdict: guilty
// when guilty votes outnumber not-guilty votes, otherwise not guilty (a tie
// favors the accused). The tally is read under a row lock, so a vote racing
// the finalization either commits before the locked read and counts toward
// the verdict, or blocks until the verdict commits and fails its voting
// guard. The transition is a compare-and-set from voting, so a watch already
// finalized or cancelled concurrently cannot be finalized twice.
func (s *voteService) FinalizeVoting(ctx context.Context, watchID int64) (*models.Watch, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	watch, err := uow.WatchRepository().GetByIDForUpdate(ctx, watchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watch: %w", err)
	}
	if watch == nil {
		return nil, ErrWatchNotFound
	}
	if watch.Status != models.WatchStatusVoting {
		return nil, ErrNotInVotingState
	}

	verdict := watch.Tally().Verdict()
	now := s.clock.Now()

	ok, err := uow.WatchRepository().CompareAndSetStatus(ctx, watchID,
		models.WatchStatusVoting, verdict,
		StatusChangeFields{ResolvedAt: &now})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize voting: %w", err)
	}
	if !ok {
		return nil, ErrNotInVotingState
	}

	uow.EventBus().Publish(events.WatchStatusChangeEvent{
		WatchID:        watch.ID,
		GuildID:        watch.GuildID,
		ChannelID:      watch.ChannelID,
		AccusedUserID:  watch.AccusedUserID,
		OldStatus:      models.WatchStatusVoting,
		NewStatus:      verdict,
		GuiltyVotes:    watch.GuiltyVotes,
		NotGuiltyVotes: watch.NotGuiltyVotes,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"watchID":        watchID,
		"verdict":        verdict,
		"guiltyVotes":    watch.GuiltyVotes,
		"notGuiltyVotes": watch.NotGuiltyVotes,
	}).Info("Voting finalized")

	watch.Status = verdict
	watch.ResolvedAt = &now
	return watch, nil
}
