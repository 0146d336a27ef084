package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// TokenAuthorizer permits mutations for callers presenting a shared bearer token
type TokenAuthorizer struct {
	token string
}

func NewTokenAuthorizer(token string) *TokenAuthorizer {
	return &TokenAuthorizer{token: token}
}

func (a *TokenAuthorizer) Authorize(r *http.Request, orgID types.OrganizationID) error {
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || presented == "" {
		return goerr.New("missing bearer token")
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.token)) != 1 {
		return goerr.New("invalid bearer token")
	}
	return nil
}
