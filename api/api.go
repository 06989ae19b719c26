// Package api provides HTTP handlers for the warrant authorization engine.
package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/xraph/forge"

	"github.com/xraph/warrant"
)

// API wires all warrant HTTP handlers together.
type API struct {
	eng      *warrant.Engine
	router   forge.Router
	validate *validator.Validate
}

// New creates an API from an Engine and a Forge router.
func New(eng *warrant.Engine, router forge.Router) *API {
	return &API{eng: eng, router: router, validate: validator.New()}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("warrant: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerCheckRoutes,
		a.registerGuardRoutes,
		a.registerPermissionRoutes,
		a.registerRoleRoutes,
		a.registerSubjectRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
