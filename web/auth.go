package web

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deep-rent/wiring/di"
	"github.com/deep-rent/wiring/router"
)

// Claims holds the verified claims of the request's bearer token.
type Claims jwt.MapClaims

// Subject returns the "sub" claim, or an empty string if it is missing.
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// ClaimsComponent provides the Claims of an HS256-signed bearer token,
// verified with secret. Requests without a valid token are rejected with
// 401 Unauthorized.
func ClaimsComponent(secret []byte) di.Component {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	key := func(*jwt.Token) (any, error) { return secret, nil }

	return di.Provide("Claims", func(_ context.Context, a di.Args) (Claims, error) {
		token := di.Arg[BearerToken](a, "token")
		if token == "" {
			return nil, errorf(
				http.StatusUnauthorized,
				router.ReasonUnauthorized,
				"missing bearer token",
			)
		}
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(string(token), claims, key); err != nil {
			e := errorf(
				http.StatusUnauthorized,
				router.ReasonUnauthorized,
				"invalid bearer token",
			)
			e.Cause = err
			return nil, e
		}
		return Claims(claims), nil
	}, di.Needs(di.Param[BearerToken]("token")))
}
