package discord

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultBaseURL is the base URL for the Discord REST API
	DefaultBaseURL = "https://discord.com/api/v9"

	// DefaultPageSize is the page size used when none is configured
	DefaultPageSize = 50

	// MaxPageSize is the largest page the messages endpoint accepts
	MaxPageSize = 100
)

// MessagesURL constructs the URL for fetching a page of channel messages.
// An empty before cursor requests the newest page.
func MessagesURL(baseURL, channelID, before string, limit int) string {
	// Ensure limit is within bounds
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if before != "" {
		params.Set("before", before)
	}

	return fmt.Sprintf("%s/channels/%s/messages?%s", baseURL, channelID, params.Encode())
}

// ChannelURL constructs the URL for fetching channel metadata
func ChannelURL(baseURL, channelID string) string {
	return fmt.Sprintf("%s/channels/%s", baseURL, channelID)
}

// IsValidChannelID checks whether a string looks like a channel snowflake
func IsValidChannelID(channelID string) bool {
	if len(channelID) < 15 || len(channelID) > 21 {
		return false
	}

	for _, char := range channelID {
		if char < '0' || char > '9' {
			return false
		}
	}

	return true
}

// SanitizeChannelID extracts a channel ID from the common forms users
// paste: a bare snowflake, a <#id> mention, or a channel URL like
// https://discord.com/channels/<guild>/<channel>.
func SanitizeChannelID(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	// Mention form
	if strings.HasPrefix(input, "<#") && strings.HasSuffix(input, ">") {
		return input[2 : len(input)-1]
	}

	// URL form, the channel ID is the last path segment
	if strings.Contains(input, "/") {
		input = strings.TrimRight(input, "/")
		if idx := strings.LastIndex(input, "/"); idx >= 0 {
			input = input[idx+1:]
		}
	}

	return input
}
