// Package auth implements the two inbound authentication schemes: HMAC
// request signatures for cluster components and proxy-supplied session
// identity for dashboard users.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/frak/beam/internal/models"
	"gorm.io/gorm"
)

// Marker is the scheme token expected in the Authorization header.
const Marker = "BEAM"

// Verification failures. Callers must not reveal to clients which of the
// 401-class failures occurred.
var (
	ErrBadAuthHeader = errors.New("auth: malformed authorization header")
	ErrUnknownKey    = errors.New("auth: unknown access key")
	ErrBadDigest     = errors.New("auth: digest mismatch")
	ErrBadDate       = errors.New("auth: unparseable date header")
	ErrReplayWindow  = errors.New("auth: request outside replay window")
)

// Subject is the authenticated component of a verified request. Epoch is
// the time the signature was validated, treated as authoritative for any
// report the request carries.
type Subject struct {
	Access    string
	Component string
	Cluster   string
	Epoch     int64
}

// Verifier checks request signatures against stored credentials.
type Verifier struct {
	db     *gorm.DB
	window time.Duration
}

// NewVerifier returns a Verifier with the given replay window.
func NewVerifier(db *gorm.DB, window time.Duration) *Verifier {
	if window <= 0 {
		window = 300 * time.Second
	}
	return &Verifier{db: db, window: window}
}

// CanonicalResource builds the signed resource string: the path followed,
// if any query parameters exist, by "?" and the parameters sorted
// lexicographically by key.
//
// Values are joined as sent, without re-encoding; clients must avoid "&"
// or "=" inside values. Only the first value of a repeated key is signed.
func CanonicalResource(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	return path + "?" + strings.Join(pairs, "&")
}

// Digest computes the base64-encoded HMAC-SHA256 signature for a request.
// Shared with the client side of the protocol and with tests.
func Digest(secret, method, resource, date string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s %s\n%s", method, resource, date)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify authenticates one request. The signature is checked before the
// date window so the window cannot be used as an oracle for key validity.
// On success the credential's lastused is advanced to the request time.
func (v *Verifier) Verify(method, path string, query url.Values, date, authorization string) (*Subject, error) {
	parts := strings.Fields(authorization)
	if len(parts) != 3 || parts[0] != Marker {
		return nil, ErrBadAuthHeader
	}
	access, supplied := parts[1], parts[2]

	type keyRow struct {
		Access    string
		Secret    string
		Component string
		Cluster   string
	}
	var rows []keyRow
	err := v.db.Model(&models.APIKey{}).
		Select("apikeys.access, apikeys.secret, apikeys.component, components.cluster").
		Joins("JOIN components ON components.id = apikeys.component").
		Where("apikeys.access = ?", access).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("auth: credential lookup: %w", err)
	}
	if len(rows) != 1 {
		return nil, ErrUnknownKey
	}
	key := rows[0]

	resource := CanonicalResource(path, query)
	expected := Digest(key.Secret, method, resource, date)
	if !hmac.Equal([]byte(expected), []byte(supplied)) {
		return nil, ErrBadDigest
	}

	// Replay check comes after signature verification.
	then, err := mail.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadDate, date)
	}
	now := time.Now()
	delta := now.Sub(then)
	if delta < 0 {
		delta = -delta
	}
	if delta > v.window {
		return nil, ErrReplayWindow
	}

	// Last-used updates tolerate weaker isolation; losing one is fine.
	ts := then.Unix()
	if err := v.db.Model(&models.APIKey{}).Where("access = ?", access).
		Update("lastused", ts).Error; err != nil {
		return nil, fmt.Errorf("auth: update lastused: %w", err)
	}

	return &Subject{
		Access:    key.Access,
		Component: key.Component,
		Cluster:   key.Cluster,
		Epoch:     now.Unix(),
	}, nil
}
