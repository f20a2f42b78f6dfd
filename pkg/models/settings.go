package models

import "strconv"

// Detection limit bounds applied to reconciler output.
const (
	DetectionLimitDefault = 10
	DetectionLimitMin     = 1
	DetectionLimitMax     = 100
)

// Bounds for overview/description text returned to the UI layer.
const (
	DescriptionLengthDefault = 30
	DescriptionLengthMin     = 10
	DescriptionLengthMax     = 500
)

// Auth methods selectable for talking to the Overseerr server.
const (
	AuthMethodCookie             = "cookie"
	AuthMethodAPIKey             = "api-key"
	AuthMethodCookieWithFallback = "cookie-with-key-fallback"
)

// Settings is the user configuration injected into the core pipeline. The
// bridge persists it in sqlite; the core never touches storage directly.
type Settings struct {
	OverseerrURL       string `json:"overseerrUrl"`
	OverseerrAPIKey    string `json:"overseerrApiKey,omitempty"`
	AuthMethod         string `json:"authMethod"`
	Prefer4K           bool   `json:"prefer4k"`
	ShowWeakDetections bool   `json:"showWeakDetections"`
	MaxDetections      int    `json:"maxDetections"`
	DescriptionLength  int    `json:"descriptionLength"`
}

// DefaultSettings returns the configuration used before the user has saved
// anything.
func DefaultSettings() Settings {
	return Settings{
		AuthMethod:        AuthMethodCookie,
		MaxDetections:     DetectionLimitDefault,
		DescriptionLength: DescriptionLengthDefault,
	}
}

// Sanitize clamps every field to its documented bounds and coerces unknown
// enum values back to their defaults.
func (s Settings) Sanitize() Settings {
	s.MaxDetections = SanitizeDetectionLimit(strconv.Itoa(s.MaxDetections), DetectionLimitDefault)
	s.DescriptionLength = SanitizeDescriptionLength(strconv.Itoa(s.DescriptionLength), DescriptionLengthDefault)
	switch s.AuthMethod {
	case AuthMethodCookie, AuthMethodAPIKey, AuthMethodCookieWithFallback:
	default:
		s.AuthMethod = AuthMethodCookie
	}
	return s
}

// SanitizeDetectionLimit normalizes a detection limit from user input or
// storage, falling back when unparsable and clamping to [min, max].
func SanitizeDetectionLimit(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if parsed < DetectionLimitMin {
		return DetectionLimitMin
	}
	if parsed > DetectionLimitMax {
		return DetectionLimitMax
	}
	return parsed
}

// SanitizeDescriptionLength normalizes the description length setting to safe
// bounds for rendering.
func SanitizeDescriptionLength(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if parsed < DescriptionLengthMin {
		return DescriptionLengthMin
	}
	if parsed > DescriptionLengthMax {
		return DescriptionLengthMax
	}
	return parsed
}
