// Package deeplink converts streaming service URLs into Roku ECP playback
// commands.
package deeplink

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractionResult holds the channel info extracted from a streaming URL.
type ExtractionResult struct {
	ChannelID     string
	ChannelName   string
	ContentID     string
	MediaType     string // "movie" or "series"
	PostLaunchKey string // "Play" or "Select"
}

// Action is one step of a playback command.
type Action interface {
	ActionType() string
}

// LaunchAction launches a Roku channel with deep link params.
type LaunchAction struct {
	ChannelID string
	Params    string
}

func (LaunchAction) ActionType() string { return "launch" }

// WaitAction pauses before the next step.
type WaitAction struct {
	Milliseconds int
}

func (WaitAction) ActionType() string { return "wait" }

// KeypressAction presses a remote key.
type KeypressAction struct {
	Key   string
	Count int
}

func (KeypressAction) ActionType() string { return "keypress" }

// PlaybackCommand is the action sequence that plays content on the device.
type PlaybackCommand struct {
	Actions []Action
}

// channel is a streaming service channel configuration.
type channel struct {
	id         string
	name       string
	urlPattern *regexp.Regexp

	// postLaunchKey confirms playback once the channel's deep link lands.
	postLaunchKey string

	// mediaTypeFromURL is set only for Netflix, whose /title/ URLs denote
	// series.
	mediaTypeFromURL bool
}

// catalog lists channels in match order.
var catalog = []channel{
	{
		id:               "12",
		name:             "Netflix",
		urlPattern:       regexp.MustCompile(`netflix\.com/(?:watch|title)/(\d+)`),
		postLaunchKey:    "Play",
		mediaTypeFromURL: true,
	},
	{
		id:            "291097",
		name:          "Disney+",
		urlPattern:    regexp.MustCompile(`disneyplus\.com/(?:(?:play|video)/|browse/entity-)([a-f0-9-]+)`),
		postLaunchKey: "Select",
	},
	{
		id:            "61322",
		name:          "HBO Max",
		urlPattern:    regexp.MustCompile(`(?:max\.com|hbomax\.com)/(?:(?:movies|series)/[^/]+/|(?:video/watch|play)/)([^/?]+)`),
		postLaunchKey: "Select",
	},
	{
		id:            "13",
		name:          "Prime Video",
		urlPattern:    regexp.MustCompile(`(?:amazon\.com|primevideo\.com)/.*?/(B[A-Z0-9]{9})`),
		postLaunchKey: "Select",
	},
}

func mediaType(url string, ch channel) string {
	if ch.mediaTypeFromURL && strings.Contains(url, "/title/") {
		return "series"
	}
	return "movie"
}

// ConvertURL converts a streaming URL to an extraction result. The catalog is
// scanned in order and the first matching pattern wins. It returns false when
// no channel recognizes the URL.
func ConvertURL(url string) (ExtractionResult, bool) {
	for _, ch := range catalog {
		m := ch.urlPattern.FindStringSubmatch(url)
		if m == nil {
			continue
		}

		return ExtractionResult{
			ChannelID:     ch.id,
			ChannelName:   ch.name,
			ContentID:     m[1],
			MediaType:     mediaType(url, ch),
			PostLaunchKey: ch.postLaunchKey,
		}, true
	}

	return ExtractionResult{}, false
}

// BuildPlaybackCommand builds the launch/wait/keypress sequence for an
// extraction result.
func BuildPlaybackCommand(extraction ExtractionResult) PlaybackCommand {
	return PlaybackCommand{
		Actions: []Action{
			LaunchAction{
				ChannelID: extraction.ChannelID,
				Params:    fmt.Sprintf("contentId=%s&mediaType=%s", extraction.ContentID, extraction.MediaType),
			},
			WaitAction{Milliseconds: 2000},
			KeypressAction{Key: extraction.PostLaunchKey, Count: 1},
		},
	}
}
