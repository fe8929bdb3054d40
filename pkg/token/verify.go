package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// VideoClaims mirrors the "video" object LiveKit embeds in its tokens.
type VideoClaims struct {
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	Room           string `json:"room,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
	Hidden         bool   `json:"hidden,omitempty"`
	Agent          bool   `json:"agent,omitempty"`
}

// Claims is the decoded payload of a LiveKit access token.
type Claims struct {
	jwt.RegisteredClaims
	Name     string       `json:"name,omitempty"`
	Metadata string       `json:"metadata,omitempty"`
	Kind     string       `json:"kind,omitempty"`
	Video    *VideoClaims `json:"video,omitempty"`
}

// Identity returns the participant identity the token was minted for.
func (c *Claims) Identity() string {
	return c.Subject
}

// Verify parses tok, checks its HS256 signature against secret and that it
// was issued by apiKey.
func Verify(tok, apiKey, apiSecret string) (*Claims, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrCredentialsMissing
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("verify token: token is not valid")
	}
	return claims, nil
}

// Permissions converts the video claims back into grant permissions.
func (c *Claims) Permissions() Permissions {
	if c.Video == nil {
		return Permissions{}
	}
	deref := func(b *bool) bool { return b != nil && *b }
	return Permissions{
		RoomJoin:       c.Video.RoomJoin,
		CanPublish:     deref(c.Video.CanPublish),
		CanSubscribe:   deref(c.Video.CanSubscribe),
		CanPublishData: deref(c.Video.CanPublishData),
		Hidden:         c.Video.Hidden,
		Agent:          c.Video.Agent,
	}
}
