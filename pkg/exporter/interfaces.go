package exporter

import (
	"context"

	"dcexport/pkg/discord"
)

// MessageFetcher defines the interface for Discord API operations
type MessageFetcher interface {
	FetchChannel(ctx context.Context, channelID string) (*discord.Channel, error)
	FetchMessages(ctx context.Context, channelID, before string) ([]discord.Message, error)
}
