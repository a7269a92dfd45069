// Package streaming registers streaming services for content ID extraction
// and Roku deep linking.
package streaming

import (
	"log/slog"
	"regexp"
	"strings"
)

// Service is a streaming service with Roku deep link support.
type Service struct {
	Name             string
	RokuChannelID    int
	Domains          []string
	URLPatterns      []*regexp.Regexp
	DefaultMediaType string
}

var (
	netflix = Service{
		Name:          "netflix",
		RokuChannelID: 12,
		Domains:       []string{"netflix.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`netflix\.com/(?:\w{2}(?:-\w{2})?/)?title/(\d+)`),
			regexp.MustCompile(`netflix\.com/(?:\w{2}(?:-\w{2})?/)?watch/(\d+)`),
		},
		DefaultMediaType: "movie",
	}

	amazonPrime = Service{
		Name:          "amazon_prime",
		RokuChannelID: 13,
		Domains:       []string{"amazon.com", "primevideo.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`amazon\.com/gp/video/detail/([A-Z0-9]{10,})`),
			regexp.MustCompile(`amazon\.com/(?:[^/]+/)?dp/([A-Z0-9]{10,})`),
			regexp.MustCompile(`primevideo\.com/(?:[a-z-]+/)*detail/(?:[^/]+/)?([A-Z0-9]{10,})`),
		},
		DefaultMediaType: "movie",
	}

	hulu = Service{
		Name:          "hulu",
		RokuChannelID: 2285,
		Domains:       []string{"hulu.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`hulu\.com/(?:series|watch|movie)/(?:[a-z0-9-]+-)?([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`),
		},
		DefaultMediaType: "movie",
	}

	disneyPlus = Service{
		Name:          "disney_plus",
		RokuChannelID: 291097,
		Domains:       []string{"disneyplus.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`disneyplus\.com/(?:\w{2}(?:-\w{2})?/)?(?:movies|series|video)/[^/]+/([0-9A-Za-z]{12})`),
		},
		DefaultMediaType: "movie",
	}

	max = Service{
		Name:          "max",
		RokuChannelID: 61322,
		Domains:       []string{"max.com", "play.max.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?:play\.)?max\.com/(?:movie|show|episode|season|video)/([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`),
		},
		DefaultMediaType: "movie",
	}

	appleTVPlus = Service{
		Name:          "apple_tv_plus",
		RokuChannelID: 551012,
		Domains:       []string{"tv.apple.com"},
		URLPatterns: []*regexp.Regexp{
			regexp.MustCompile(`tv\.apple\.com/(?:\w{2}/)?(?:show|movie|episode)/[^/]+/(umc\.cmc\.[a-z0-9]+)`),
		},
		DefaultMediaType: "movie",
	}
)

// defaultPriority is the fallback service order when no configuration applies.
var defaultPriority = []Service{netflix, hulu, disneyPlus, max, appleTVPlus, amazonPrime}

var registry = func() map[string]Service {
	m := make(map[string]Service, len(defaultPriority))
	for _, svc := range defaultPriority {
		m[svc.Name] = svc
	}
	return m
}()

// ActiveServices returns services in the priority order given by names.
// Unknown names are skipped with a warning; an empty result falls back to the
// default priority list.
func ActiveServices(names []string) []Service {
	if len(names) == 0 {
		return append([]Service(nil), defaultPriority...)
	}

	var result []Service
	for _, name := range names {
		svc, ok := registry[name]
		if !ok {
			slog.Warn("unknown streaming service in config", "name", name)
			continue
		}
		result = append(result, svc)
	}

	if len(result) == 0 {
		return append([]Service(nil), defaultPriority...)
	}
	return result
}

// MatchURL matches a URL to a streaming service and extracts its content ID.
// Services are tried in priority order and the first match wins.
func MatchURL(url string, services []Service) (Service, string, bool) {
	if services == nil {
		services = defaultPriority
	}

	for _, svc := range services {
		for _, pattern := range svc.URLPatterns {
			if m := pattern.FindStringSubmatch(url); m != nil {
				return svc, m[1], true
			}
		}
	}

	return Service{}, "", false
}

// SiteFilters builds a web search site: filter string for the given services,
// e.g. "site:netflix.com OR site:hulu.com".
func SiteFilters(services []Service) string {
	if services == nil {
		services = defaultPriority
	}

	var parts []string
	for _, svc := range services {
		for _, domain := range svc.Domains {
			parts = append(parts, "site:"+domain)
		}
	}

	return strings.Join(parts, " OR ")
}
