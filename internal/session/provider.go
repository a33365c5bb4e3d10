package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sukoonai.org/sukoon-web/internal/observability"
)

type contextKey string

const sessionContextKey contextKey = "sukoon-web/session"

// Provider loads the session, resolves any bearer identity, exposes both on the request
// context and persists the session before the first byte of the response is written.
// Store or verifier failures degrade to an anonymous session; they never fail the request.
func Provider(store Store, authenticator Authenticator) func(http.Handler) http.Handler {
	if store == nil {
		panic("session store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := observability.FromContext(ctx)

			sess, err := store.Load(r)
			switch {
			case errors.Is(err, ErrExpired):
				logger.Debug("session expired: resetting")
				sess = store.New()
			case err != nil || sess == nil:
				if err != nil {
					logger.Warn("session load failed", zap.Error(err))
				}
				sess = store.New()
			}

			if token := bearerToken(r.Header.Get("Authorization")); token != "" && authenticator != nil {
				user, err := authenticator.Authenticate(ctx, token)
				if err != nil || user == nil {
					logger.Info("bearer authentication failed", zap.String("reason", ReasonOf(err)), zap.Error(err))
				} else {
					if !sess.Authenticated() {
						sess.RegenerateID()
					}
					sess.SetUser(user)
				}
			}
			if u := sess.User(); u != nil {
				observability.SetUserID(ctx, u.UID)
			}

			ctx = context.WithValue(ctx, sessionContextKey, sess)
			sw := &savingWriter{ResponseWriter: w, save: func() {
				if err := store.Save(ctx, w, sess); err != nil {
					logger.Error("session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.persist()
		})
	}
}

// FromContext retrieves the session attached to this request.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	sess, ok := ctx.Value(sessionContextKey).(*Session)
	return sess, ok && sess != nil
}

// UserFromContext returns the signed-in user, or nil for anonymous or session-less requests.
func UserFromContext(ctx context.Context) *User {
	sess, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return sess.User()
}

// ContextWithSession attaches a session to ctx. Useful for rendering outside the middleware chain.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

func bearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// savingWriter persists the session just before headers are committed.
type savingWriter struct {
	http.ResponseWriter
	once sync.Once
	save func()
}

func (w *savingWriter) persist() { w.once.Do(w.save) }

func (w *savingWriter) WriteHeader(code int) {
	w.persist()
	w.ResponseWriter.WriteHeader(code)
}

func (w *savingWriter) Write(b []byte) (int, error) {
	w.persist()
	return w.ResponseWriter.Write(b)
}

func (w *savingWriter) Flush() {
	w.persist()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *savingWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
