package testutil

import (
	"time"

	"watchman/models"
)

// CreateTestWatch creates a pending watch with default values
func CreateTestWatch(guildID, accusedUserID int64, scheduledAt time.Time) *models.Watch {
	return &models.Watch{
		GuildID:               guildID,
		AccusedUserID:         accusedUserID,
		InitiatorUserID:       accusedUserID + 1,
		ChannelID:             900001,
		OriginMessageID:       910001,
		ScheduledAt:           scheduledAt,
		Status:                models.WatchStatusPending,
		VotingDurationMinutes: 5,
	}
}

// CreateTestVote creates a vote with default values
func CreateTestVote(watchID, guildID, voterID int64, choice models.VoteChoice) *models.Vote {
	return &models.Vote{
		WatchID: watchID,
		GuildID: guildID,
		VoterID: voterID,
		Choice:  choice,
	}
}
