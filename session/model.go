// Package session implements the per-device session registry, the token
// blacklist, and the background sweeper that reconciles expired state.
//
// A session is identified by (user_id, device_id). The registry maintains
// two secondary indices in Redis alongside the session records: a set of
// device IDs per user and a global set of users with at least one live
// session. The three writes are not cross-key transactional; the sweeper
// reconciles any inconsistency, and readers never trust index membership
// without re-checking the record itself.
package session

import "time"

// DeviceInfo describes the client device, derived from the user agent by an
// external parser before login reaches the engine.
type DeviceInfo struct {
	UserAgent      string `json:"user_agent"`
	DeviceFamily   string `json:"device_family"`
	DeviceBrand    string `json:"device_brand"`
	DeviceModel    string `json:"device_model"`
	DeviceType     string `json:"device_type"`
	OSFamily       string `json:"os_family"`
	OSVersion      string `json:"os_version"`
	BrowserFamily  string `json:"browser_family"`
	BrowserVersion string `json:"browser_version"`
}

// GeoInfo is the IP-derived location captured at login.
type GeoInfo struct {
	Country string `json:"country"`
	Region  string `json:"region"`
	City    string `json:"city"`
}

// Record is the stored session state for one user on one device. Encoded as
// JSON so the sweeper's Lua script can inspect expiry fields with cjson.
type Record struct {
	UserID           string     `json:"user_id"`
	DeviceID         string     `json:"device_id"`
	AccessToken      string     `json:"access"`
	RefreshToken     string     `json:"refresh"`
	AccessExpiresAt  int64      `json:"access_expired_time"`
	RefreshExpiresAt int64      `json:"refresh_expired_time"`
	AccessTTLSec     int64      `json:"access_expired_second"`
	RefreshTTLSec    int64      `json:"refresh_expired_second"`
	LoginAt          int64      `json:"login_at"`
	LastActiveAt     int64      `json:"last_active_at"`
	IPAddress        string     `json:"ip_address"`
	Device           DeviceInfo `json:"device_info"`
	Geo              GeoInfo    `json:"geo"`
}

// Expired reports whether both token expiries have passed. A record with a
// live refresh token is still a live session even if its access token
// lapsed.
func (r *Record) Expired(now time.Time) bool {
	ts := now.Unix()
	return r.AccessExpiresAt <= ts && r.RefreshExpiresAt <= ts
}

// RemainingTTL is the time left in the session's original refresh window:
// (login_at + refresh lifetime) - now. Refresh and activity touches rewrite
// the record with this TTL rather than the full refresh lifetime, so TTL
// renewal can never extend a session beyond its original window.
func (r *Record) RemainingTTL(now time.Time) time.Duration {
	expiresAt := time.Unix(r.LoginAt+r.RefreshTTLSec, 0)
	return expiresAt.Sub(now)
}

// Summary is the caller-facing view of one active session.
type Summary struct {
	DeviceID     string     `json:"device_id"`
	IPAddress    string     `json:"ip_address"`
	Device       DeviceInfo `json:"device_info"`
	Geo          GeoInfo    `json:"geo"`
	LoginAt      int64      `json:"login_at"`
	LastActiveAt int64      `json:"last_active_at"`
}

// Summarize builds the enumeration view of a record.
func (r *Record) Summarize() Summary {
	return Summary{
		DeviceID:     r.DeviceID,
		IPAddress:    r.IPAddress,
		Device:       r.Device,
		Geo:          r.Geo,
		LoginAt:      r.LoginAt,
		LastActiveAt: r.LastActiveAt,
	}
}
