package providers

// Provider is the closed set of scraper integrations the dashboard knows how
// to label. Anything else collapses into Unknown rather than failing.
type Provider string

const (
	PinterestBoardFeed   Provider = "pinterest.board_feed"
	WeverseArtistFeed    Provider = "weverse.artist_feed"
	TwitterTimeline      Provider = "twitter.timeline"
	UnitedCubeArtistFeed Provider = "united_cube.artist_feed"
	Unknown              Provider = "unknown"
)

const (
	PlaceholderIcon     = "/static/icons/unknown.svg"
	pinterestRemoteIcon = "https://e7.pngegg.com/pngimages/854/804/png-clipart-pinterest-logo-square-pinterest-icon-icons-logos-emojis-social-media-icons-thumbnail.png"
)

type Details struct {
	Provider Provider
	Label    string
	Icon     string
}

var known = map[Provider]Details{
	PinterestBoardFeed: {
		Provider: PinterestBoardFeed,
		Label:    "Pinterest",
		Icon:     pinterestRemoteIcon,
	},
	WeverseArtistFeed: {
		Provider: WeverseArtistFeed,
		Label:    "Weverse",
		Icon:     "/static/icons/weverse.svg",
	},
	TwitterTimeline: {
		Provider: TwitterTimeline,
		Label:    "Twitter",
		Icon:     "/static/icons/twitter.svg",
	},
	UnitedCubeArtistFeed: {
		Provider: UnitedCubeArtistFeed,
		Label:    "United Cube",
		Icon:     "/static/icons/united_cube.svg",
	},
}

// Resolve maps a provider name as reported by the backend onto its details.
// The boolean reports whether the name was recognised.
func Resolve(name string) (Details, bool) {
	if d, ok := known[Provider(name)]; ok {
		return d, true
	}
	return Details{
		Provider: Unknown,
		Label:    name,
		Icon:     PlaceholderIcon,
	}, false
}

// All returns the known providers in a stable order.
func All() []Details {
	return []Details{
		known[PinterestBoardFeed],
		known[WeverseArtistFeed],
		known[TwitterTimeline],
		known[UnitedCubeArtistFeed],
	}
}
