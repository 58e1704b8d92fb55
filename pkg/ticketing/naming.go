package ticketing

import (
	"regexp"
	"strings"
)

// maxChannelNameLength is the platform cap on channel name length.
const maxChannelNameLength = 100

var (
	unsafeChars         = regexp.MustCompile(`[^a-z0-9-]`)
	collapsedSeparators = regexp.MustCompile(`-{2,}`)
)

// RenderChannelName evaluates a channel-naming template against the given
// placeholder values and normalises the result into a usable channel name:
// lowercased, unsafe characters replaced with "-", separator runs collapsed,
// and length capped.
func RenderChannelName(template string, vars map[string]string) string {
	name := template
	for k, v := range vars {
		name = strings.ReplaceAll(name, "{"+k+"}", v)
	}

	name = strings.ToLower(name)
	name = unsafeChars.ReplaceAllString(name, "-")
	name = collapsedSeparators.ReplaceAllString(name, "-")
	if len(name) > maxChannelNameLength {
		name = name[:maxChannelNameLength]
	}
	return name
}

// channelNameVars builds the placeholder set for a ticket channel name.
// {emoji} is the status emoji, so names track status transitions.
func channelNameVars(statusEmoji, typeID, username, userID string) map[string]string {
	return map[string]string{
		"emoji":    statusEmoji,
		"type_id":  typeID,
		"username": username,
		"user_id":  userID,
	}
}
