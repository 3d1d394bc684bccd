package utils

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"movment/globals"
	"movment/lifecycle"
	"movment/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestTimeout bounds every store call made on behalf of a request.
const RequestTimeout = 5 * time.Second

func RequestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), RequestTimeout)
}

// UserFromRequest returns the user the gate loaded for this request.
func UserFromRequest(r *http.Request) *models.User {
	u, _ := r.Context().Value(globals.UserKey).(*models.User)
	return u
}

// RequestID returns the id the logging middleware assigned, or "".
func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(globals.RequestIDKey).(string)
	return id
}

func GetUserIDFromRequest(r *http.Request) primitive.ObjectID {
	if u := UserFromRequest(r); u != nil {
		return u.ID
	}
	return primitive.NilObjectID
}

// ActorFromRequest builds the lifecycle actor from the store-validated user.
func ActorFromRequest(r *http.Request) lifecycle.Actor {
	u := UserFromRequest(r)
	if u == nil {
		return lifecycle.Actor{}
	}
	return lifecycle.Actor{ID: u.ID, Role: u.Role}
}

// TrimAll trims every entry and drops the blank ones.
func TrimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ClientIP is the peer address without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
