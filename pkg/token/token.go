// Package token mints and verifies LiveKit access tokens.
package token

import (
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
)

// DefaultTTL matches the validity LiveKit applies when none is set.
const DefaultTTL = 6 * time.Hour

// Permissions are the room-level capabilities carried by a grant.
type Permissions struct {
	RoomJoin       bool
	CanPublish     bool
	CanSubscribe   bool
	CanPublishData bool
	Hidden         bool
	Agent          bool
}

// Grant describes a participant token before signing.
type Grant struct {
	Identity string
	Name     string
	Room     string
	Metadata string
	// Kind is the participant kind; the zero value is a standard participant.
	Kind livekit.ParticipantInfo_Kind
	Permissions
	TTL time.Duration
}

// ParticipantGrant returns a grant that lets identity join room and
// publish, subscribe and send data.
func ParticipantGrant(room, identity string) Grant {
	return Grant{
		Identity: identity,
		Room:     room,
		Permissions: Permissions{
			RoomJoin:       true,
			CanPublish:     true,
			CanSubscribe:   true,
			CanPublishData: true,
		},
	}
}

// Signer turns a grant into a signed token.
type Signer interface {
	Sign(g Grant) (string, error)
}

// Issuer signs grants with a LiveKit API key pair.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewIssuer returns an Issuer for the given key pair. Empty credentials are
// accepted here; Sign reports them.
func NewIssuer(apiKey, apiSecret string) *Issuer {
	return &Issuer{apiKey: apiKey, apiSecret: apiSecret, ttl: DefaultTTL}
}

// WithTTL sets the validity used for grants that carry no TTL of their own.
func (i *Issuer) WithTTL(ttl time.Duration) *Issuer {
	if ttl > 0 {
		i.ttl = ttl
	}
	return i
}

// HasCredentials reports whether both the key and the secret are set.
func (i *Issuer) HasCredentials() bool {
	return i.apiKey != "" && i.apiSecret != ""
}

// APIKey returns the key used as the token issuer.
func (i *Issuer) APIKey() string {
	return i.apiKey
}

// Sign produces a signed JWT for g.
func (i *Issuer) Sign(g Grant) (string, error) {
	if !i.HasCredentials() {
		return "", ErrCredentialsMissing
	}

	video := &auth.VideoGrant{
		RoomJoin: g.RoomJoin,
		Room:     g.Room,
		Hidden:   g.Hidden,
		Agent:    g.Agent,
	}
	video.SetCanPublish(g.CanPublish)
	video.SetCanSubscribe(g.CanSubscribe)
	video.SetCanPublishData(g.CanPublishData)

	ttl := g.TTL
	if ttl <= 0 {
		ttl = i.ttl
	}

	at := auth.NewAccessToken(i.apiKey, i.apiSecret).
		AddGrant(video).
		SetIdentity(g.Identity).
		SetValidFor(ttl)
	if g.Name != "" {
		at.SetName(g.Name)
	}
	if g.Metadata != "" {
		at.SetMetadata(g.Metadata)
	}
	if g.Kind != livekit.ParticipantInfo_STANDARD {
		at.SetKind(g.Kind)
	}

	jwt, err := at.ToJWT()
	if err != nil {
		return "", &SigningError{Err: err}
	}
	return jwt, nil
}
