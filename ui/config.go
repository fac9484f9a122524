package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Document source (path, URL, or "-" for stdin)
	Path string

	// Speech settings
	SpeechKey    string `env:"READALOUD_SPEECH_KEY"`
	SpeechRegion string `env:"READALOUD_SPEECH_REGION"`
	Voice        string
	Rate         float64
	SkipCode     bool
	SkipHeadings bool

	// Rendering
	GlamourMaxWidth uint
	GlamourStyle    string `env:"GLAMOUR_STYLE"`
	GlamourEnabled  bool   `env:"READALOUD_ENABLE_GLAMOUR" envDefault:"true"`
	EnableMouse     bool

	HomeDir string `env:"HOME"`
}
