package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/frak/beam/internal/directory"
	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware.
const (
	ContextSubject  = "beam.subject"
	ContextIdentity = "beam.identity"
)

// RequireKey authenticates component requests via their HMAC signature.
// Auth failures return 401 with a generic body so an attacker cannot tell
// an unknown key from a bad signature; only a stale Date returns 400.
func RequireKey(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		subj, err := v.Verify(
			c.Request.Method,
			c.Request.URL.Path,
			c.Request.URL.Query(),
			c.GetHeader("Date"),
			c.GetHeader("Authorization"),
		)
		if err != nil {
			log.Printf("auth: rejected request to %s: %v", c.Request.URL.Path, err)
			if errors.Is(err, ErrReplayWindow) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "request outside replay window"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(ContextSubject, subj)
		c.Next()
	}
}

// SubjectFrom returns the authenticated component subject of a request.
func SubjectFrom(c *gin.Context) *Subject {
	if v, ok := c.Get(ContextSubject); ok {
		return v.(*Subject)
	}
	return nil
}

// Identity is the authenticated dashboard user, as resolved through the
// directory.
type Identity struct {
	UID       string `json:"uid"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
	Admin     bool   `json:"admin"`
	Analyst   bool   `json:"analyst"`
}

// RequireSession resolves the proxy-supplied identity header against the
// directory and extracts application roles from entitlements of the form
// "{prefix}/{role}". Users with neither the analyst nor the admin role are
// forbidden.
func RequireSession(dir directory.Directory, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetHeader("X-Authenticated-User")
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authenticated"})
			return
		}
		person, err := dir.GetPerson(c.Request.Context(), uid)
		if err != nil {
			log.Printf("auth: directory lookup for %s failed: %v", uid, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory unavailable"})
			return
		}
		if person == nil || person.ID == "" || person.Name == "" || person.GivenName == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}

		ident := &Identity{
			UID:       uid,
			ID:        person.ID,
			Name:      person.Name,
			GivenName: person.GivenName,
		}
		for _, ent := range person.Entitlements {
			role, ok := strings.CutPrefix(ent, prefix+"/")
			if !ok {
				continue
			}
			switch role {
			case "admin":
				ident.Admin = true
			case "analyst":
				ident.Analyst = true
			}
		}
		if !ident.Admin && !ident.Analyst {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not authorized"})
			return
		}
		c.Set(ContextIdentity, ident)
		c.Next()
	}
}

// RequireAdmin gates a route on the admin role; it must run after
// RequireSession.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := IdentityFrom(c)
		if ident == nil || !ident.Admin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin required"})
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated dashboard identity of a request.
func IdentityFrom(c *gin.Context) *Identity {
	if v, ok := c.Get(ContextIdentity); ok {
		return v.(*Identity)
	}
	return nil
}
