package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/needle-digital/dh-importer/internal/utils"
)

// ErrMalformedToken is returned when an access token cannot be decoded or is
// missing the claims the session lifecycle depends on.
var ErrMalformedToken = errors.New("malformed token")

// Claims holds the locally decoded contents of an access token. The token is
// a signed structure issued by the identity provider; the plugin decodes it
// without a verification round-trip so that expiry and tier checks work
// offline. Signature verification is the API server's job.
type Claims struct {
	Subject   string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Decode extracts the session-relevant claims from a raw JWT.
// The exp claim is mandatory: without it the session controller cannot
// schedule refresh or validate expiry.
func Decode(rawToken string) (*Claims, error) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, errors.Wrap(ErrMalformedToken, err.Error())
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.Wrap(ErrMalformedToken, "missing exp claim")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	iat, _ := claims["iat"].(float64)

	roleClaim, _ := claims["role"].(string)
	if roleClaim == "" {
		// Some issuers carry a roles array instead of a single role claim.
		if claimRoles, ok := claims["roles"].([]any); ok {
			if roles := utils.ToStringSlice(claimRoles); len(roles) > 0 {
				roleClaim = roles[0]
			}
		}
	}

	return &Claims{
		Subject:   sub,
		Email:     email,
		Role:      ParseRole(roleClaim),
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
