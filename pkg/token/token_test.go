package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/livekit/protocol/livekit"
	"github.com/matryer/is"
)

const (
	testKey    = "APIdevkey"
	testSecret = "a-long-enough-secret-for-hs256-signing"
)

func TestIssuer_Sign(t *testing.T) {
	is := is.New(t)

	issuer := NewIssuer(testKey, testSecret)
	jwt, err := issuer.Sign(ParticipantGrant("test-room", "test_user"))
	is.NoErr(err)
	is.Equal(len(strings.Split(jwt, ".")), 3) // compact JWS

	claims, err := Verify(jwt, testKey, testSecret)
	is.NoErr(err)
	is.Equal(claims.Identity(), "test_user")
	is.Equal(claims.Issuer, testKey)
	is.True(claims.Video != nil)
	is.Equal(claims.Video.Room, "test-room")

	perms := claims.Permissions()
	is.True(perms.RoomJoin)       // join granted
	is.True(perms.CanPublish)     // publish granted
	is.True(perms.CanSubscribe)   // subscribe granted
	is.True(perms.CanPublishData) // data granted
	is.True(!perms.Agent)
	is.Equal(claims.Kind, "") // standard participants carry no kind
}

func TestIssuer_SignKind(t *testing.T) {
	tests := []struct {
		name string
		kind livekit.ParticipantInfo_Kind
		want string
	}{
		{name: "standard", kind: livekit.ParticipantInfo_STANDARD, want: ""},
		{name: "agent", kind: livekit.ParticipantInfo_AGENT, want: "agent"},
		{name: "sip", kind: livekit.ParticipantInfo_SIP, want: "sip"},
	}

	issuer := NewIssuer(testKey, testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			g := ParticipantGrant("demo", "bey-avatar-agent")
			g.Kind = tt.kind

			jwt, err := issuer.Sign(g)
			is.NoErr(err)
			claims, err := Verify(jwt, testKey, testSecret)
			is.NoErr(err)
			is.Equal(claims.Kind, tt.want)
		})
	}
}

func TestIssuer_SignMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		secret string
	}{
		{name: "missing key", secret: testSecret},
		{name: "missing secret", key: testKey},
		{name: "missing both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			issuer := NewIssuer(tt.key, tt.secret)
			is.True(!issuer.HasCredentials())

			jwt, err := issuer.Sign(ParticipantGrant("room", "id"))
			is.True(errors.Is(err, ErrCredentialsMissing))
			is.True(!errors.Is(err, ErrSigning)) // configuration errors are not signing errors
			is.Equal(jwt, "")
		})
	}
}

func TestIssuer_SignMetadataAndTTL(t *testing.T) {
	is := is.New(t)

	issuer := NewIssuer(testKey, testSecret)
	g := Grant{
		Identity: "bey-avatar-agent",
		Name:     "Avatar",
		Room:     "demo",
		Metadata: `{"lk.publish_on_behalf":"agent-1"}`,
		TTL:      time.Minute,
		Permissions: Permissions{
			RoomJoin:   true,
			CanPublish: true,
		},
	}
	jwt, err := issuer.Sign(g)
	is.NoErr(err)

	claims, err := Verify(jwt, testKey, testSecret)
	is.NoErr(err)
	is.Equal(claims.Metadata, g.Metadata)
	is.Equal(claims.Name, "Avatar")
	is.True(!claims.Permissions().CanSubscribe)

	lifetime := claims.ExpiresAt.Sub(claims.NotBefore.Time)
	is.True(lifetime <= time.Minute+time.Second) // grant TTL wins over issuer default
}

func TestVerify_Rejects(t *testing.T) {
	is := is.New(t)

	jwt, err := NewIssuer(testKey, testSecret).Sign(ParticipantGrant("room", "user"))
	is.NoErr(err)

	_, err = Verify(jwt, testKey, "some-other-secret-value-entirely")
	is.True(err != nil) // wrong secret

	_, err = Verify(jwt, "APIother", testSecret)
	is.True(err != nil) // wrong issuer

	_, err = Verify("not-a-token", testKey, testSecret)
	is.True(err != nil)

	_, err = Verify(jwt, "", "")
	is.True(errors.Is(err, ErrCredentialsMissing))
}

func TestSigningError(t *testing.T) {
	is := is.New(t)

	cause := errors.New("boom")
	var err error = &SigningError{Err: cause}

	is.True(errors.Is(err, ErrSigning))
	is.True(errors.Is(err, cause))
	is.True(!errors.Is(err, ErrCredentialsMissing))
	is.True(strings.Contains(err.Error(), "boom"))
}
