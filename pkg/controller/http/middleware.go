package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/utils/errutil"
)

// ErrForbidden is returned when the authorizer denies a request
var ErrForbidden = goerr.New("operation is not permitted")

// Authorizer decides whether the caller may modify the organization's risk
// configurations. Authentication itself happens upstream.
type Authorizer interface {
	Authorize(r *http.Request, orgID types.OrganizationID) error
}

// AuthorizerFunc adapts a function to Authorizer
type AuthorizerFunc func(r *http.Request, orgID types.OrganizationID) error

func (f AuthorizerFunc) Authorize(r *http.Request, orgID types.OrganizationID) error {
	return f(r, orgID)
}

// authorizeMiddleware rejects mutating requests the authorizer denies
func authorizeMiddleware(authorizer Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authorizer == nil {
				next.ServeHTTP(w, r)
				return
			}

			orgID := types.OrganizationID(chi.URLParam(r, "orgID"))
			if err := authorizer.Authorize(r, orgID); err != nil {
				errutil.HandleHTTP(r.Context(), w,
					goerr.Wrap(ErrForbidden, err.Error(), goerr.V(model.OrganizationIDKey, orgID)),
					http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
