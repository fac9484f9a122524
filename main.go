// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/text/language"

	"github.com/kittycrypto-gg/readaloud/internal/store"
	"github.com/kittycrypto-gg/readaloud/internal/utils"
	"github.com/kittycrypto-gg/readaloud/speak"
	"github.com/kittycrypto-gg/readaloud/speak/audio"
	mdparagraph "github.com/kittycrypto-gg/readaloud/speak/paragraph"
	"github.com/kittycrypto-gg/readaloud/speak/region"
	"github.com/kittycrypto-gg/readaloud/speak/synth"
	"github.com/kittycrypto-gg/readaloud/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}

	configFile      string
	style           string
	width           uint
	mouse           bool
	voice           string
	speechRate      float64
	preferredRegion string
	speechKey       string
	skipCode        bool
	skipHeadings    bool

	rootCmd = &cobra.Command{
		Use:   "readaloud [SOURCE]",
		Short: "Read markdown aloud on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRender markdown on the CLI and %s with a cloud voice.", keyword("read it aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable markdown source.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "" {
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
			}
			// consumer of the source is responsible for closing the ReadCloser.
			resp, err := http.Get(u.String()) //nolint:noctx,bodyclose
			if err != nil {
				return nil, fmt.Errorf("unable to get url: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
			}
			return &source{resp.Body, u.String()}, nil
		}
	}

	// a directory: read its README
	if arg == "" {
		arg = "."
	}
	st, err := os.Stat(arg)
	if err == nil && st.IsDir() {
		for _, name := range readmeNames {
			candidate := filepath.Join(arg, name)
			r, err := os.Open(candidate)
			if err != nil {
				continue
			}
			u, _ := filepath.Abs(candidate)
			return &source{r, u}, nil
		}
		return nil, errors.New("missing markdown source")
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != "auto" && styles.DefaultStyles[style] == nil {
		style = utils.ExpandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

// validateVoice checks that the voice name starts with a parseable locale,
// like en-US-JennyNeural.
func validateVoice(voice string) error {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return fmt.Errorf("voice %q is not a full voice name (expected e.g. %s)", voice, speak.DefaultVoice)
	}
	if _, err := language.Parse(parts[0] + "-" + parts[1]); err != nil {
		return fmt.Errorf("voice %q has an unknown locale: %w", voice, err)
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	mouse = viper.GetBool("mouse")
	style = viper.GetString("style")
	voice = viper.GetString("voice")
	speechRate = viper.GetFloat64("rate")
	preferredRegion = viper.GetString("region")
	speechKey = viper.GetString("key")
	skipCode = viper.GetBool("skipCodeBlocks")
	skipHeadings = viper.GetBool("skipHeadings")

	if err := validateStyle(style); err != nil {
		return err
	}
	if err := validateVoice(voice); err != nil {
		return err
	}
	if speechRate < speak.MinRate || speechRate > speak.MaxRate {
		return fmt.Errorf("rate %.2f out of range [%.1f, %.1f]", speechRate, speak.MinRate, speak.MaxRate)
	}

	// Detect terminal width
	if !cmd.Flags().Changed("width") {
		isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(_ *cobra.Command, args []string) error {
	// if stdin is a pipe then use stdin for input. note that you can also
	// explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		src := &source{reader: os.Stdin}
		defer src.reader.Close() //nolint:errcheck
		return run(src)
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	src, err := sourceFromArg(arg)
	if err != nil {
		return err
	}
	defer src.reader.Close() //nolint:errcheck
	return run(src)
}

// lateSurface lets the session be constructed before the Bubble Tea program
// that will receive its notifications exists.
type lateSurface struct {
	inner speak.Surface
}

func (l *lateSurface) bind(s speak.Surface) { l.inner = s }

func (l *lateSurface) ParagraphChanged(index int) {
	if l.inner != nil {
		l.inner.ParagraphChanged(index)
	}
}

func (l *lateSurface) StateChanged(state speak.StateType) {
	if l.inner != nil {
		l.inner.StateChanged(state)
	}
}

func (l *lateSurface) SessionError(err error) {
	if l.inner != nil {
		l.inner.SessionError(err)
	}
}

// speechOverrides picks the credential and preferred region for the
// session: flag/config values win, the dedicated env vars fill the gaps.
func speechOverrides(cfg ui.Config) (credential, preferred string) {
	credential = speechKey
	if credential == "" {
		credential = cfg.SpeechKey
	}
	preferred = preferredRegion
	if preferred == "" {
		preferred = cfg.SpeechRegion
	}
	return credential, preferred
}

func run(src *source) error {
	b, err := io.ReadAll(src.reader)
	if err != nil {
		return fmt.Errorf("unable to read from reader: %w", err)
	}
	b = utils.RemoveFrontmatter(b)
	content := string(b)

	isMarkdown := src.URL == "" || utils.IsMarkdownFile(src.URL)
	opts := mdparagraph.DefaultOptions()
	opts.SkipCodeBlocks = skipCode
	opts.SkipHeadings = skipHeadings

	var paras []speak.Paragraph
	if isMarkdown {
		paras = mdparagraph.Extract(b, opts)
	} else {
		paras = mdparagraph.ExtractText(b)
	}

	dataDir, err := store.DefaultDir()
	if err != nil {
		return err
	}
	resourceStore := store.NewResourceStore(dataDir)
	bookmarks := store.NewBookmarkStore(dataDir)
	docKey := utils.DocumentKey(src.URL)
	sink := store.NewDocumentBookmarks(bookmarks, docKey)

	provider := mdparagraph.NewProvider(paras, func() *speak.IndexHint {
		mark, err := sink.Resume()
		if err != nil || mark == nil {
			return nil
		}
		return &speak.IndexHint{ID: mark.ParagraphID, Index: mark.Index}
	})

	client := synth.NewClient(synth.Config{
		RequestsPerMinute: viper.GetInt("requestsPerMinute"),
	})
	resolver := region.NewResolver(client, resourceStore)

	player, err := audio.NewPlayer()
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}

	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	credential, wantRegion := speechOverrides(cfg)

	surface := &lateSurface{}
	session, err := speak.NewSession(speak.SessionDeps{
		Paragraphs: provider,
		Resolver:   resolver,
		Synth:      client,
		Player:     player,
		Bookmarks:  sink,
		Prober:     client,
		Surface:    surface,
	}, speak.Options{
		Credential:      credential,
		PreferredRegion: wantRegion,
		Voice:           voice,
		Rate:            speechRate,
	})
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck

	if err := validateStyle(cfg.GlamourStyle); err != nil {
		cfg.GlamourStyle = style
	}
	cfg.Path = src.URL
	cfg.Voice = voice
	cfg.Rate = speechRate
	cfg.SkipCode = skipCode
	cfg.SkipHeadings = skipHeadings
	cfg.GlamourMaxWidth = width
	cfg.GlamourEnabled = cfg.GlamourEnabled && isMarkdown
	cfg.EnableMouse = mouse

	program := ui.NewProgram(cfg, content, session)
	surface.bind(speak.ProgramSurface{Send: program.Send, Total: len(paras)})

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&style, "style", "s", styles.AutoStyle, "style name or JSON path")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to disable)")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().StringVar(&voice, "voice", speak.DefaultVoice, "voice name for synthesis")
	rootCmd.Flags().Float64Var(&speechRate, "rate", speak.DefaultRate, "speech rate multiplier")
	rootCmd.Flags().StringVar(&preferredRegion, "region", "", "preferred speech service region")
	rootCmd.Flags().StringVar(&speechKey, "key", "", "speech service credential")
	rootCmd.Flags().BoolVar(&skipCode, "skip-code", true, "do not read code blocks aloud")
	rootCmd.Flags().BoolVar(&skipHeadings, "skip-headings", false, "do not read headings aloud")

	// Config bindings
	_ = viper.BindPFlag("style", rootCmd.Flags().Lookup("style"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("region", rootCmd.Flags().Lookup("region"))
	_ = viper.BindPFlag("key", rootCmd.Flags().Lookup("key"))
	_ = viper.BindPFlag("skipCodeBlocks", rootCmd.Flags().Lookup("skip-code"))
	_ = viper.BindPFlag("skipHeadings", rootCmd.Flags().Lookup("skip-headings"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("voice", speak.DefaultVoice)
	viper.SetDefault("rate", speak.DefaultRate)
	viper.SetDefault("requestsPerMinute", 0)

	rootCmd.AddCommand(configCmd, manCmd, regionsCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readaloud")}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readaloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readaloud")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "readaloud.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
