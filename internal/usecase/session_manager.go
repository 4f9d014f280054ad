package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"QuantDesk/internal/domain/models"
	domrepo "QuantDesk/internal/domain/repository"
	applogger "QuantDesk/pkg/logger"
)

// MsgInvalidCredentials is the single message shown for any failed login.
const MsgInvalidCredentials = "Invalid email or password"

var ErrInvalidCredentials = errors.New("invalid email or password")

// RestoreOutcome reports what Restore found in the state store.
type RestoreOutcome int

const (
	RestoreEmpty RestoreOutcome = iota
	RestoreSession
	RestoreCorrupt
)

func (o RestoreOutcome) String() string {
	switch o {
	case RestoreSession:
		return "session"
	case RestoreCorrupt:
		return "corrupt"
	default:
		return "empty"
	}
}

// SessionEventKind says why the session changed.
type SessionEventKind int

const (
	SessionRestored SessionEventKind = iota
	SessionLoggedIn
	SessionLoggedOut
)

// SessionEvent is delivered to observers after every change.
type SessionEvent struct {
	Kind   SessionEventKind
	User   models.SessionUser
	Active bool
}

type sessionSub struct {
	id int
	fn SessionObserver
}

type SessionObserver func(SessionEvent)

// SessionManager owns the single active session of the console.
type SessionManager struct {
	creds    domrepo.CredentialStore
	store    domrepo.StateStore
	activity domrepo.ActivityRecorder
	metrics  domrepo.Metrics
	logger   *applogger.Logger

	mu        sync.RWMutex
	user      models.SessionUser
	active    bool
	changes   int
	observers []sessionSub
	nextID    int
}

func NewSessionManager(creds domrepo.CredentialStore, store domrepo.StateStore, activity domrepo.ActivityRecorder, metrics domrepo.Metrics, l *applogger.Logger) *SessionManager {
	return &SessionManager{
		creds:    creds,
		store:    store,
		activity: activity,
		metrics:  metrics,
		logger:   l,
	}
}

// Restore loads the persisted session. Store failures and corrupt records
// leave the console signed out. A login or logout that lands while the record
// is being read wins over the record.
func (m *SessionManager) Restore(ctx context.Context) RestoreOutcome {
	m.mu.RLock()
	seen := m.changes
	m.mu.RUnlock()

	outcome, user := m.readPersisted(ctx)

	m.mu.Lock()
	if outcome == RestoreSession && m.changes == seen {
		m.user, m.active = user, true
	}
	ev := SessionEvent{Kind: SessionRestored, User: m.user, Active: m.active}
	m.mu.Unlock()

	m.logger.Info("session restored", applogger.String("outcome", outcome.String()))
	m.notify(ev)
	return outcome
}

func (m *SessionManager) readPersisted(ctx context.Context) (RestoreOutcome, models.SessionUser) {
	raw, ok, err := m.store.Load(ctx, domrepo.KeySessionUser)
	if err != nil {
		m.logger.Error("load session failed", applogger.Error(err))
		return RestoreEmpty, models.SessionUser{}
	}
	if !ok {
		return RestoreEmpty, models.SessionUser{}
	}

	user, err := decodeSessionUser(raw)
	if err != nil {
		m.logger.Warn("persisted session is corrupt, discarding", applogger.Error(err))
		if rmErr := m.store.Remove(ctx, domrepo.KeySessionUser); rmErr != nil {
			m.logger.Error("remove corrupt session failed", applogger.Error(rmErr))
		}
		return RestoreCorrupt, models.SessionUser{}
	}
	return RestoreSession, user
}

func decodeSessionUser(raw string) (models.SessionUser, error) {
	var u models.SessionUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.SessionUser{}, err
	}
	if u.Email == "" {
		return models.SessionUser{}, errors.New("session record has no email")
	}
	return u, nil
}

// Login checks the credentials and makes the matching user the active session.
// A failed persist is logged; the in-memory session still changes.
func (m *SessionManager) Login(ctx context.Context, email, password string) (models.SessionUser, error) {
	u, ok := m.creds.Lookup(email, password)
	if !ok {
		m.metrics.RecordLogin("invalid")
		m.activity.Record(models.ActivityEvent{Kind: models.ActivityLoginFailed, Actor: email})
		m.logger.Info("login rejected", applogger.String("email", email))
		return models.SessionUser{}, ErrInvalidCredentials
	}

	user := models.ToSessionUser(u)
	m.mu.Lock()
	m.user, m.active = user, true
	m.changes++
	m.mu.Unlock()

	if b, err := json.Marshal(user); err != nil {
		m.logger.Error("encode session failed", applogger.Error(err))
	} else if err := m.store.Save(ctx, domrepo.KeySessionUser, string(b)); err != nil {
		m.metrics.RecordError("session_persist")
		m.logger.Error("persist session failed", applogger.Error(err))
	}

	m.metrics.RecordLogin("success")
	m.activity.Record(models.ActivityEvent{Kind: models.ActivityLoginSucceeded, Actor: user.Email, Subject: user.AccountType})
	m.logger.Info("login succeeded", applogger.String("email", user.Email))
	m.notify(SessionEvent{Kind: SessionLoggedIn, User: user, Active: true})
	return user, nil
}

// Logout clears the active session and its persisted record. Calling it
// while signed out only removes the record again.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	prev, wasActive := m.user, m.active
	m.user, m.active = models.SessionUser{}, false
	m.changes++
	m.mu.Unlock()

	if err := m.store.Remove(ctx, domrepo.KeySessionUser); err != nil {
		m.metrics.RecordError("session_remove")
		m.logger.Error("remove session failed", applogger.Error(err))
	}
	if wasActive {
		m.activity.Record(models.ActivityEvent{Kind: models.ActivityLogout, Actor: prev.Email})
		m.logger.Info("logout", applogger.String("email", prev.Email))
	}
	m.notify(SessionEvent{Kind: SessionLoggedOut})
}

// Current returns the active session user.
func (m *SessionManager) Current() (models.SessionUser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.active
}

// Subscribe registers an observer and returns a function that removes it.
func (m *SessionManager) Subscribe(fn SessionObserver) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers = append(m.observers, sessionSub{id: id, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.observers {
			if sub.id == id {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *SessionManager) notify(ev SessionEvent) {
	m.mu.RLock()
	obs := make([]SessionObserver, 0, len(m.observers))
	for _, sub := range m.observers {
		obs = append(obs, sub.fn)
	}
	m.mu.RUnlock()

	for _, fn := range obs {
		fn(ev)
	}
}
