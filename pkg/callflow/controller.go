package callflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harun/procurer/pkg/elevenlabs"
)

// Status is the connection status of a call.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// defaultSpeakingIdle is how long after the last audio chunk the agent is
// still considered to be speaking.
const defaultSpeakingIdle = 800 * time.Millisecond

// State is a point-in-time view of a call.
type State struct {
	Status         Status
	Speaking       bool
	Err            string
	ConversationID string
}

// Label is the headline shown for the state.
func (s State) Label() string {
	if s.Status != StatusConnected {
		return "Ready to Call"
	}
	if s.Speaking {
		return "Agent is speaking..."
	}
	return "Listening..."
}

// ButtonLabel is the caption of the Start/End toggle.
func (s State) ButtonLabel() string {
	if s.Status == StatusConnected {
		return "End Call"
	}
	return "Start Call"
}

// Permission grants access to the microphone.
type Permission interface {
	Request(ctx context.Context) error
}

// PermissionFunc adapts a function to Permission.
type PermissionFunc func(ctx context.Context) error

func (f PermissionFunc) Request(ctx context.Context) error { return f(ctx) }

// SignedURLSource yields a signed session URL.
type SignedURLSource interface {
	SignedURL(ctx context.Context) (string, error)
}

// Session is an open realtime conversation.
type Session interface {
	Events() <-chan elevenlabs.Event
	Close() error
}

// Dialer opens a realtime session from a signed URL.
type Dialer interface {
	Dial(ctx context.Context, signedURL string) (Session, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, signedURL string) (Session, error)

func (f DialerFunc) Dial(ctx context.Context, signedURL string) (Session, error) {
	return f(ctx, signedURL)
}

// Options configures a Controller.
type Options struct {
	Permission Permission
	Source     SignedURLSource
	Dialer     Dialer
	Logger     zerolog.Logger

	// OnChange receives a snapshot after every state change. It is called
	// without the controller lock held.
	OnChange func(State)
	// OnEvent receives every session event, after state has been updated.
	OnEvent func(elevenlabs.Event)

	SpeakingIdle time.Duration
}

// Controller drives a single call: permission, signed URL, session.
type Controller struct {
	permission Permission
	source     SignedURLSource
	dialer     Dialer
	logger     zerolog.Logger
	onChange   func(State)
	onEvent    func(elevenlabs.Event)
	idle       time.Duration

	mu         sync.Mutex
	state      State
	session    Session
	generation uint64
	speakTimer *time.Timer
}

// NewController creates a controller in the disconnected state.
func NewController(opts Options) (*Controller, error) {
	if opts.Permission == nil {
		return nil, errors.New("permission is required")
	}
	if opts.Source == nil {
		return nil, errors.New("signed url source is required")
	}
	if opts.Dialer == nil {
		return nil, errors.New("dialer is required")
	}
	if opts.SpeakingIdle <= 0 {
		opts.SpeakingIdle = defaultSpeakingIdle
	}

	return &Controller{
		permission: opts.Permission,
		source:     opts.Source,
		dialer:     opts.Dialer,
		logger:     opts.Logger.With().Str("component", "callflow").Logger(),
		onChange:   opts.OnChange,
		onEvent:    opts.OnEvent,
		idle:       opts.SpeakingIdle,
		state:      State{Status: StatusDisconnected},
	}, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Label is Snapshot().Label().
func (c *Controller) Label() string { return c.Snapshot().Label() }

// ButtonLabel is Snapshot().ButtonLabel().
func (c *Controller) ButtonLabel() string { return c.Snapshot().ButtonLabel() }

// Start requests permission, fetches a signed URL and opens the session, in
// that order. Each step runs only if the previous one succeeded; a failure
// is recorded in State.Err and returned. Start is a no-op while a call is
// connecting or connected.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status != StatusDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = State{Status: StatusConnecting}
	c.generation++
	gen := c.generation
	c.mu.Unlock()
	c.notify()

	if err := c.permission.Request(ctx); err != nil {
		return c.fail(gen, err)
	}

	signedURL, err := c.source.SignedURL(ctx)
	if err != nil {
		return c.fail(gen, err)
	}
	if signedURL == "" {
		return c.fail(gen, ErrNoSignedURL)
	}

	sess, err := c.dialer.Dial(ctx, signedURL)
	if err != nil {
		return c.fail(gen, err)
	}

	c.mu.Lock()
	if c.generation != gen {
		// Stopped while connecting.
		c.mu.Unlock()
		_ = sess.Close()
		return nil
	}
	c.state.Status = StatusConnected
	c.session = sess
	c.mu.Unlock()

	c.logger.Info().Msg("Call connected")
	c.notify()

	go c.pump(gen, sess)

	return nil
}

// Stop ends the active session, if any, and returns to disconnected.
// It is always safe to call.
func (c *Controller) Stop() error {
	c.mu.Lock()
	sess := c.session
	wasIdle := c.state.Status == StatusDisconnected && sess == nil
	c.session = nil
	c.generation++
	c.stopSpeakingLocked()
	c.state.Status = StatusDisconnected
	c.mu.Unlock()

	if wasIdle {
		return nil
	}

	var err error
	if sess != nil {
		err = sess.Close()
	}

	c.logger.Info().Msg("Call ended")
	c.notify()

	return err
}

func (c *Controller) fail(gen uint64, err error) error {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return err
	}
	c.state.Status = StatusDisconnected
	c.state.Err = err.Error()
	c.mu.Unlock()

	c.logger.Warn().Err(err).Msg("Call failed to start")
	c.notify()

	return err
}

func (c *Controller) pump(gen uint64, sess Session) {
	for ev := range sess.Events() {
		c.handle(gen, ev)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.session = nil
	c.stopSpeakingLocked()
	c.state.Status = StatusDisconnected
	c.mu.Unlock()

	c.logger.Info().Msg("Session ended by remote")
	c.notify()
}

func (c *Controller) handle(gen uint64, ev elevenlabs.Event) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}

	changed := false
	switch ev.Type {
	case elevenlabs.EventInitiation:
		c.state.ConversationID = ev.ConversationID
		changed = true
	case elevenlabs.EventAudio:
		changed = !c.state.Speaking
		c.state.Speaking = true
		c.resetSpeakTimerLocked(gen)
	case elevenlabs.EventInterruption, elevenlabs.EventUserTranscript:
		changed = c.state.Speaking
		c.stopSpeakingLocked()
	case elevenlabs.EventError:
		c.state.Err = ev.Text
		changed = true
	}
	c.mu.Unlock()

	if c.onEvent != nil {
		c.onEvent(ev)
	}
	if changed {
		c.notify()
	}
}

func (c *Controller) resetSpeakTimerLocked(gen uint64) {
	if c.speakTimer != nil {
		c.speakTimer.Stop()
	}
	c.speakTimer = time.AfterFunc(c.idle, func() {
		c.mu.Lock()
		if c.generation != gen || !c.state.Speaking {
			c.mu.Unlock()
			return
		}
		c.state.Speaking = false
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) stopSpeakingLocked() {
	if c.speakTimer != nil {
		c.speakTimer.Stop()
		c.speakTimer = nil
	}
	c.state.Speaking = false
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.Snapshot())
}
