package bot

import (
	"context"
	"fmt"
	"strings"

	"watchman/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleVoteButton processes a guilty / not guilty button press
func (b *Bot) handleVoteButton(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	ctx := context.Background()

	var choice models.VoteChoice
	var rawID string
	switch {
	case strings.HasPrefix(customID, "watch_vote_not_guilty_"):
		choice = models.VoteChoiceNotGuilty
		rawID = strings.TrimPrefix(customID, "watch_vote_not_guilty_")
	case strings.HasPrefix(customID, "watch_vote_guilty_"):
		choice = models.VoteChoiceGuilty
		rawID = strings.TrimPrefix(customID, "watch_vote_guilty_")
	default:
		return
	}

	watchID, err := parseSnowflake(rawID)
	if err != nil {
		log.Printf("Error parsing watch ID from custom ID %s: %v", customID, err)
		b.respondWithError(s, i, "Unable to process vote. Please try again.")
		return
	}

	voterID, err := parseSnowflake(i.Member.User.ID)
	if err != nil {
		log.Printf("Error parsing voter Discord ID %s: %v", i.Member.User.ID, err)
		b.respondWithError(s, i, "Unable to process vote. Please try again.")
		return
	}

	tally, err := b.voteService.CastVote(ctx, watchID, voterID, choice)
	if err != nil {
		b.respondWithError(s, i, userFacingError(err))
		return
	}

	label := "not guilty"
	if choice == models.VoteChoiceGuilty {
		label = "guilty"
	}
	b.respondEphemeral(s, i, fmt.Sprintf("Your **%s** vote was counted. Current tally: %d guilty / %d not guilty.",
		label, tally.GuiltyVotes, tally.NotGuiltyVotes))
}
