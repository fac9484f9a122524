// Package synth is the HTTP client for the speech provider: SSML in,
// complete audio buffer out, plus the lightweight region probe used during
// resolution.
package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kittycrypto-gg/readaloud/speak"
	"github.com/kittycrypto-gg/readaloud/speak/region"
)

// Provider endpoint shapes. %s is replaced by the region; a template
// without %s is used verbatim, which keeps tests pointed at a local server.
const (
	DefaultEndpointTemplate = "https://%s.tts.speech.microsoft.com/cognitiveservices/v1"
	DefaultTokenTemplate    = "https://%s.api.cognitive.microsoft.com/sts/v1.0/issueToken"
)

// DefaultOutputFormat matches the audio player's PCM configuration.
const DefaultOutputFormat = "raw-48khz-16bit-mono-pcm"

const defaultUserAgent = "readaloud"

// maxDiagnosticBytes caps how much of an error body is kept as diagnostic
// text.
const maxDiagnosticBytes = 2048

// Config holds client configuration.
type Config struct {
	EndpointTemplate  string
	TokenTemplate     string
	OutputFormat      string
	UserAgent         string
	Timeout           time.Duration // transport-level guard; callers also bound via ctx
	RequestsPerMinute int           // 0 disables client-side rate limiting
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		EndpointTemplate:  DefaultEndpointTemplate,
		TokenTemplate:     DefaultTokenTemplate,
		OutputFormat:      DefaultOutputFormat,
		UserAgent:         defaultUserAgent,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 0,
	}
}

// SynthesisError is a provider rejection, carrying the HTTP status and any
// diagnostic text the provider returned.
type SynthesisError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("speech provider returned %d", e.StatusCode)
	}
	return fmt.Sprintf("speech provider returned %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the provider throttled the request.
func (e *SynthesisError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Unauthorized reports whether the provider rejected the credential.
func (e *SynthesisError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Client talks to the speech provider. It never retries; retry policy lives
// in the session.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a speech client.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.EndpointTemplate == "" {
		cfg.EndpointTemplate = def.EndpointTemplate
	}
	if cfg.TokenTemplate == "" {
		cfg.TokenTemplate = def.TokenTemplate
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = def.OutputFormat
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Synthesize converts text to one complete audio buffer.
func (c *Client) Synthesize(ctx context.Context, req speak.SynthesisRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, errors.New("synth: text cannot be empty")
	}
	if req.Region == "" {
		return nil, errors.New("synth: region cannot be empty")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("synth: rate limit wait: %w", err)
		}
	}

	body := buildSSML(req.Voice, req.Rate, req.Text)
	url := expand(c.cfg.EndpointTemplate, req.Region)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("synth: build request: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", c.cfg.OutputFormat)
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synth: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &SynthesisError{
			StatusCode: resp.StatusCode,
			Message:    readDiagnostic(resp.Body),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synth: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("synth: provider returned empty audio")
	}
	return audio, nil
}

// Probe implements region.Prober with a token-issue call that checks the
// credential against a region without producing audio.
func (c *Client) Probe(ctx context.Context, credential, regionName string) (region.ProbeStatus, error) {
	url := expand(c.cfg.TokenTemplate, regionName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return region.StatusUnreachable, fmt.Errorf("synth: build probe: %w", err)
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", credential)
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return region.StatusUnreachable, err
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDiagnosticBytes))

	switch {
	case resp.StatusCode == http.StatusOK:
		return region.StatusAvailable, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return region.StatusUnauthorized, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return region.StatusRateLimited, nil
	default:
		return region.StatusUnreachable, fmt.Errorf("synth: probe returned %d", resp.StatusCode)
	}
}

// buildSSML assembles the synthesis request body. The rate is expressed as
// a relative prosody percentage.
func buildSSML(voice string, speechRate float64, text string) string {
	if voice == "" {
		voice = speak.DefaultVoice
	}
	lang := voiceLocale(voice)
	prosody := fmt.Sprintf("%+.0f%%", (speechRate-1.0)*100)

	var sb strings.Builder
	sb.WriteString(`<speak version='1.0' xml:lang='`)
	sb.WriteString(lang)
	sb.WriteString(`'><voice name='`)
	sb.WriteString(voice)
	sb.WriteString(`'><prosody rate='`)
	sb.WriteString(prosody)
	sb.WriteString(`'>`)
	sb.WriteString(escapeXML(text))
	sb.WriteString(`</prosody></voice></speak>`)
	return sb.String()
}

// voiceLocale derives the xml:lang from a voice name like
// "en-US-JennyNeural".
func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// expand substitutes the region into an endpoint template.
func expand(template, regionName string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, regionName)
	}
	return template
}

// readDiagnostic keeps a bounded amount of an error response body.
func readDiagnostic(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxDiagnosticBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
