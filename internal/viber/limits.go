package viber

// Platform limits enforced before a request leaves the process.
const (
	MaxTextLength         = 7000
	MaxPictureTextLength  = 120
	MaxFileNameLength     = 256
	MaxURLLength          = 2000
	MaxTrackingDataLength = 2048
	MaxAltTextLength      = 7000
	MaxActionBodyLength   = 250

	// MaxPresenceIDs is the get_online batch size.
	MaxPresenceIDs = 100

	MaxButtonColumns        = 6
	MaxCarouselGroupColumns = 6
	MaxCarouselGroupRows    = 7
	MaxTextOpacity          = 100
)
