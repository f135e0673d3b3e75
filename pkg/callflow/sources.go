package callflow

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harun/procurer/pkg/elevenlabs"
)

var (
	// ErrNoSignedURL is returned when the endpoint answers without a signedUrl.
	ErrNoSignedURL = errors.New("failed to get signed URL: no signedUrl in response")
	// ErrPermissionDenied is returned when microphone access is refused.
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// SignedURLPath is the local endpoint that issues signed URLs.
const SignedURLPath = "/api/get-signed-url"

// HTTPSignedURLSource fetches signed URLs from a running procurer server.
type HTTPSignedURLSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSignedURLSource creates a source for the server at baseURL.
func NewHTTPSignedURLSource(baseURL string) *HTTPSignedURLSource {
	return &HTTPSignedURLSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SignedURL implements SignedURLSource.
func (s *HTTPSignedURLSource) SignedURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+SignedURLPath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get signed URL: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("failed to get signed URL: %s", resp.Status)
	}

	var body struct {
		SignedURL string `json:"signedUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to get signed URL: %w", err)
	}
	if body.SignedURL == "" {
		return "", ErrNoSignedURL
	}

	return body.SignedURL, nil
}

// ConsentPrompt asks on a terminal before the microphone is used.
type ConsentPrompt struct {
	In        io.Reader
	Out       io.Writer
	AssumeYes bool
}

// Request implements Permission.
func (p ConsentPrompt) Request(ctx context.Context) error {
	if p.AssumeYes {
		return nil
	}
	if p.In == nil {
		return fmt.Errorf("%w: no terminal to ask for consent", ErrPermissionDenied)
	}

	if p.Out != nil {
		fmt.Fprint(p.Out, "Allow microphone access for this call? [y/N]: ")
	}

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case a := <-answer:
		if a == "y" || a == "yes" {
			return nil
		}
		return ErrPermissionDenied
	}
}

// ElevenLabsDialer opens sessions with elevenlabs.DialSession.
type ElevenLabsDialer struct {
	Options elevenlabs.DialOptions
}

// Dial implements Dialer.
func (d ElevenLabsDialer) Dial(ctx context.Context, signedURL string) (Session, error) {
	sess, err := elevenlabs.DialSession(ctx, signedURL, d.Options)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
