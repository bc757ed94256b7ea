package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const SessionCookieName = "portal_session"

var (
	ErrInvalidToken      = errors.New("invalid session token")
	errSealedCredentials = errors.New("malformed sealed credentials")
)

type Options struct {
	Secret string
	TTL    time.Duration
	Secure bool
}

// Service ties a browser to its session flags through a signed cookie that
// carries only the opaque session id.
type Service struct {
	store  Store
	secret []byte
	boxKey [32]byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
	parser *jwt.Parser
}

func NewService(store Store, opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, errors.New("auth: empty session secret")
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	s := &Service{
		store:  store,
		secret: []byte(opts.Secret),
		ttl:    opts.TTL,
		secure: opts.Secure,
		now:    time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	kdf := hkdf.New(sha256.New, s.secret, nil, []byte("civicportal upstream credentials"))
	if _, err := io.ReadFull(kdf, s.boxKey[:]); err != nil {
		return nil, fmt.Errorf("derive credentials key: %w", err)
	}
	return s, nil
}

func (s *Service) TTL() time.Duration { return s.ttl }

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *Service) issueToken(sessionID string) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// sessionID returns the session a cookie value points at. Tokens signed
// with another key or algorithm, expired ones and ones without a session
// id all fail with ErrInvalidToken.
func (s *Service) sessionID(raw string) (string, error) {
	var claims Claims
	if _, err := s.parser.ParseWithClaims(raw, &claims, s.signingKey); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: no session id", ErrInvalidToken)
	}
	return claims.SessionID, nil
}

func (s *Service) signingKey(*jwt.Token) (any, error) {
	return s.secret, nil
}

// Load resolves the request's session. A request without a valid cookie
// gets an empty session with no id.
func (s *Service) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return &Session{Flags: Flags{}}, nil
	}
	id, err := s.sessionID(c.Value)
	if err != nil {
		return &Session{Flags: Flags{}}, nil
	}
	flags, err := s.store.Load(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("load session flags: %w", err)
	}
	sess := &Session{ID: id, Flags: flags}
	if sealed, ok := flags[FlagUpstream]; ok {
		delete(flags, FlagUpstream)
		if creds, err := s.open(sealed); err == nil {
			sess.Credentials = creds
		}
	}
	return sess, nil
}

// Begin starts a fresh session holding flags and creds and sets its cookie.
func (s *Service) Begin(ctx context.Context, w http.ResponseWriter, flags Flags, creds Credentials) (*Session, error) {
	sessionID := uuid.NewString()
	stored := make(Flags, len(flags)+1)
	for k, v := range flags {
		stored[k] = v
	}
	if creds != "" {
		sealed, err := s.seal(creds)
		if err != nil {
			return nil, err
		}
		stored[FlagUpstream] = sealed
	}
	if err := s.store.Save(ctx, sessionID, stored); err != nil {
		return nil, fmt.Errorf("save session flags: %w", err)
	}
	token, err := s.issueToken(sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	delete(stored, FlagUpstream)
	return &Session{ID: sessionID, Flags: stored, Credentials: creds}, nil
}

// End clears every flag of the session and expires the cookie.
func (s *Service) End(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	if sess == nil || sess.ID == "" {
		return nil
	}
	if err := s.store.Clear(ctx, sess.ID); err != nil {
		return fmt.Errorf("clear session flags: %w", err)
	}
	sess.Flags = Flags{}
	sess.Credentials = ""
	return nil
}

// Purge removes sessions idle for longer than the session TTL.
func (s *Service) Purge(ctx context.Context) (int64, error) {
	return s.store.Purge(ctx, s.now().Add(-s.ttl))
}

func (s *Service) seal(creds Credentials) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal credentials: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(creds), &nonce, &s.boxKey)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *Service) open(sealed string) (Credentials, error) {
	box, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil || len(box) < 24+secretbox.Overhead {
		return "", errSealedCredentials
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, &s.boxKey)
	if !ok {
		return "", errSealedCredentials
	}
	return Credentials(plain), nil
}

type contextKey string

const sessionContextKey contextKey = "civicportal_session"

func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*Session)
	return sess, ok && sess != nil
}

// Middleware attaches the request's session to its context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Load(r)
		if err != nil {
			http.Error(w, "Session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
