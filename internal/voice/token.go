// Package voice mints LiveKit access tokens and keeps the voice presence
// documents the session store reads.
package voice

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant is the LiveKit "video" claim.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	Room         string `json:"room,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

type AccessToken struct {
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenIssuer(apiKey string, apiSecret string, ttl time.Duration) (*TokenIssuer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("livekit api key and secret are required")
	}
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	return &TokenIssuer{
		apiKey:    apiKey,
		apiSecret: []byte(apiSecret),
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Issue returns a token joining identity to the room named after the channel.
// Without canPublish the participant can only listen.
func (t *TokenIssuer) Issue(identity string, name string, channelID string, canPublish bool) (string, error) {
	if identity == "" || channelID == "" {
		return "", errors.New("identity and channel are required")
	}

	currentTime := t.now()
	subscribe := true

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessToken{
		Name: name,
		Video: &VideoGrant{
			RoomJoin:     true,
			Room:         channelID,
			CanPublish:   &canPublish,
			CanSubscribe: &subscribe,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.apiKey,
			Subject:   identity,
			ID:        identity,
			NotBefore: jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(t.ttl)),
		},
	})

	return token.SignedString(t.apiSecret)
}

// Verify parses a token this issuer signed.
func (t *TokenIssuer) Verify(tokenString string) (AccessToken, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessToken{}, func(token *jwt.Token) (interface{}, error) {
		return t.apiSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.apiKey), jwt.WithTimeFunc(t.now))
	if err != nil {
		return AccessToken{}, err
	} else if claims, ok := token.Claims.(*AccessToken); ok {
		return *claims, nil
	} else {
		return AccessToken{}, errors.New("invalid token")
	}
}
