package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"croptool/internal/crop"
)

// CropDefaults apply to every session unless the request overrides them.
type CropDefaults struct {
	MinWidth  int
	MinHeight int
	Ratio     float64
}

// Ratio decodes from a JSON number (1.5) or string ("16:9", "4/3").
type Ratio float64

func (r *Ratio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("ratio must be a number or a string: %w", err)
		}
		if f < 0 {
			return fmt.Errorf("%w: got %v", crop.ErrInvalidRatio, f)
		}
		*r = Ratio(f)
		return nil
	}
	v, err := crop.ParseRatio(s)
	if err != nil {
		return err
	}
	*r = Ratio(v)
	return nil
}

// Notification is one engine event as reported to clients.
type Notification struct {
	Type   string      `json:"type"`
	Coords crop.Coords `json:"coords"`
}

const (
	notifyReady   = "ready"
	notifyMoved   = "moved"
	notifyChanged = "changed"
)

type SessionRequest struct {
	File               string       `json:"file"`
	RenderedWidth      float64      `json:"rendered_width"`
	RenderedHeight     float64      `json:"rendered_height"`
	MinWidth           *int         `json:"min_width,omitempty"`
	MinHeight          *int         `json:"min_height,omitempty"`
	Ratio              *Ratio       `json:"ratio,omitempty"`
	InitialCoordinates *crop.Coords `json:"initial_coordinates,omitempty"`
	Suggest            bool         `json:"suggest,omitempty"`
}

type SessionState struct {
	ID             string      `json:"id"`
	File           string      `json:"file"`
	OriginalWidth  int         `json:"original_width"`
	OriginalHeight int         `json:"original_height"`
	Ratio          float64     `json:"ratio,omitempty"`
	State          crop.State  `json:"state"`
	Rect           crop.Rect   `json:"rect"`
	MinSize        crop.Size   `json:"min_size"`
	Coords         crop.Coords `json:"coords"`
	CreatedAt      time.Time   `json:"created_at"`
}

type EventsResult struct {
	Accepted      int            `json:"accepted"`
	Notifications []Notification `json:"notifications"`
	Session       SessionState   `json:"session"`
}

var errSessionNotFound = errors.New("crop session not found")

// requestError marks errors caused by what the client sent.
type requestError struct{ error }

func (e requestError) Unwrap() error { return e.error }

type cropSession struct {
	mu        sync.Mutex
	id        string
	file      string
	engine    *crop.Engine
	pending   []Notification
	createdAt time.Time
}

func (s *cropSession) notify(kind string) func(crop.Coords) {
	return func(c crop.Coords) {
		s.pending = append(s.pending, Notification{Type: kind, Coords: c})
	}
}

// drain returns and clears the notifications collected so far.
func (s *cropSession) drain() []Notification {
	out := s.pending
	s.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

func (s *cropSession) state() SessionState {
	opts := s.engine.Options()
	return SessionState{
		ID:             s.id,
		File:           s.file,
		OriginalWidth:  opts.OriginalWidth,
		OriginalHeight: opts.OriginalHeight,
		Ratio:          opts.Ratio,
		State:          s.engine.State(),
		Rect:           s.engine.Rect(),
		MinSize:        s.engine.MinSize(),
		Coords:         s.engine.Coords(),
		CreatedAt:      s.createdAt,
	}
}

// SessionStore holds one crop engine per open image. Each engine is only
// touched under its session lock.
type SessionStore struct {
	rootDir  string
	defaults CropDefaults

	mu       sync.RWMutex
	sessions map[string]*cropSession
}

func NewSessionStore(rootDir string, defaults CropDefaults) *SessionStore {
	return &SessionStore{
		rootDir:  rootDir,
		defaults: defaults,
		sessions: make(map[string]*cropSession),
	}
}

func (s *SessionStore) Create(ctx context.Context, req SessionRequest) (SessionState, error) {
	if req.File == "" {
		return SessionState{}, requestError{crop.ErrNoImage}
	}
	path := filepath.Join(s.rootDir, cleanRel(req.File))
	if _, err := os.Stat(path); err != nil {
		return SessionState{}, requestError{fmt.Errorf("%w: %s", crop.ErrNoImage, req.File)}
	}
	width, height, err := imageDimensions(path)
	if err != nil {
		return SessionState{}, requestError{err}
	}

	defaults := s.defaults
	if req.MinWidth != nil {
		defaults.MinWidth = *req.MinWidth
	}
	if req.MinHeight != nil {
		defaults.MinHeight = *req.MinHeight
	}
	if req.Ratio != nil {
		defaults.Ratio = float64(*req.Ratio)
	}

	initial := req.InitialCoordinates
	if initial == nil && req.Suggest && defaults.Ratio > 0 {
		suggested, err := SuggestCropFile(ctx, path, defaults)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("filename", req.File).Msg("no crop suggestion, using default placement")
		} else {
			initial = &suggested
		}
	}

	sess := &cropSession{
		id:        uuid.NewString(),
		file:      req.File,
		createdAt: time.Now(),
	}
	logger := log.Ctx(ctx).With().Str("session", sess.id).Logger()
	engine, err := crop.New(crop.Options{
		Image:              req.File,
		OriginalWidth:      width,
		OriginalHeight:     height,
		MinWidth:           defaults.MinWidth,
		MinHeight:          defaults.MinHeight,
		Ratio:              defaults.Ratio,
		InitialCoordinates: initial,
		Logger:             &logger,
		OnMoved:            sess.notify(notifyMoved),
		OnChanged:          sess.notify(notifyChanged),
	})
	if err != nil {
		return SessionState{}, requestError{err}
	}
	sess.engine = engine
	if err := engine.Prime(req.RenderedWidth, req.RenderedHeight); err != nil {
		return SessionState{}, requestError{err}
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	logger.Info().Str("filename", req.File).Int("width", width).Int("height", height).Msg("crop session created")
	return sess.state(), nil
}

func (s *SessionStore) lookup(id string) (*cropSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return sess, nil
}

func (s *SessionStore) Get(id string) (SessionState, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state(), nil
}

// Coords returns the current selection of a session in original pixels.
func (s *SessionStore) Coords(id string) (crop.Coords, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return crop.Coords{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Coords(), nil
}

// Events feeds pointer samples to a session in order and returns what the
// engine emitted while processing them.
func (s *SessionStore) Events(id string, events []crop.Event) (EventsResult, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return EventsResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	accepted := 0
	for _, ev := range events {
		if sess.engine.Handle(ev) {
			accepted++
		}
	}
	return EventsResult{
		Accepted:      accepted,
		Notifications: sess.drain(),
		Session:       sess.state(),
	}, nil
}

// Viewport re-primes a session after the rendered image changed size.
func (s *SessionStore) Viewport(id string, renderedWidth, renderedHeight float64) (SessionState, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.engine.Reprime(renderedWidth, renderedHeight); err != nil {
		return SessionState{}, requestError{err}
	}
	return sess.state(), nil
}

func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
