// Package controller holds the observable view state of projects and videos and the
// commands that change it.
package controller

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/ports"
	"github.com/jhorman9/elevideo/internal/session"
)

// Notification titles
const (
	TitleError           = "error"
	TitleConnectionError = "connection error"
)

var (
	ErrNoProject       = errors.New("no project selected")
	ErrEmptyName       = errors.New("project name is required")
	ErrEmptyTitle      = errors.New("video title is required")
	ErrNotDownloadable = errors.New("video is not ready for download")
)

type settings struct {
	page      int
	size      int
	autoFetch bool
	notifier  ports.Notifier
	navigator ports.Navigator
	logger    zerolog.Logger
}

func defaultSettings() settings {
	return settings{
		size:      20,
		autoFetch: true,
		notifier:  ports.Discard,
		navigator: ports.Discard,
		logger:    zerolog.Nop(),
	}
}

// Option configures a controller
type Option func(*settings)

// WithPage sets the initial zero-based page.
func WithPage(p int) Option {
	return func(s *settings) {
		if p >= 0 {
			s.page = p
		}
	}
}

// WithSize sets the page size (default 20).
func WithSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithAutoFetch controls fetching on construction and on page change (default true).
func WithAutoFetch(on bool) Option {
	return func(s *settings) { s.autoFetch = on }
}

// WithNotifier sets the notification sink.
func WithNotifier(n ports.Notifier) Option {
	return func(s *settings) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithNavigator sets the navigation sink.
func WithNavigator(n ports.Navigator) Option {
	return func(s *settings) {
		if n != nil {
			s.navigator = n
		}
	}
}

// WithLogger attaches a logger
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// observable holds one state record and fans snapshots out to subscribers.
type observable[S any] struct {
	mu    sync.Mutex
	state S
	clone func(S) S
	subs  map[int]func(S)
	next  int
}

func newObservable[S any](initial S, clone func(S) S) *observable[S] {
	return &observable[S]{state: initial, clone: clone, subs: make(map[int]func(S))}
}

func (o *observable[S]) get() S {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clone(o.state)
}

// update applies fn under the lock, then hands a snapshot to subscribers outside it.
func (o *observable[S]) update(fn func(*S)) {
	o.mu.Lock()
	fn(&o.state)
	snap := o.clone(o.state)
	subs := make([]func(S), 0, len(o.subs))
	for _, f := range o.subs {
		subs = append(subs, f)
	}
	o.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
}

func (o *observable[S]) subscribe(fn func(S)) (cancel func()) {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// generation tags fetches so only the most recently started one may write state.
type generation struct {
	n atomic.Uint64
}

func (g *generation) begin() uint64       { return g.n.Add(1) }
func (g *generation) latest(t uint64) bool { return g.n.Load() == t }

// policy is the error handling shared by every command: expired sessions go to the
// session policy, anything else becomes the error string and a notification.
type policy struct {
	notifier ports.Notifier
	expiry   session.Policy
	logger   zerolog.Logger
}

func newPolicy(s settings) policy {
	return policy{
		notifier: s.notifier,
		expiry:   session.NewPolicy(s.notifier, s.navigator, s.logger),
		logger:   s.logger,
	}
}

// surface reports err to the user. setErr receives the message unless the session expired.
func (p policy) surface(err error, fallback string, setErr func(string)) {
	if p.expiry.Handle(err) {
		return
	}

	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	setErr(msg)

	title := TitleError
	if errors.Is(err, api.ErrTransport) {
		title = TitleConnectionError
	}
	p.logger.Debug().Err(err).Msg(fallback)
	p.notifier.Notify(ports.Notification{Title: title, Description: msg, Severity: ports.SeverityDestructive})
}

func (p policy) info(title, description string) {
	p.notifier.Notify(ports.Notification{Title: title, Description: description, Severity: ports.SeverityDefault})
}

func (p policy) warn(title, description string) {
	p.notifier.Notify(ports.Notification{Title: title, Description: description, Severity: ports.SeverityDestructive})
}
