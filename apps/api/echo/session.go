package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/escolabr/escola/auth"
	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/core/school"
)

type sessionApi struct {
	reg      *school.Registry
	idp      auth.IdentityProvider
	validate *validator.Validate
}

func registerSessionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	reg *school.Registry,
	idp auth.IdentityProvider,
	validate *validator.Validate,
) {
	api := sessionApi{
		reg:      reg,
		idp:      idp,
		validate: validate,
	}

	// un-authed endpoints
	g.POST("/login", api.login)

	// authed endpoints
	ag := g.Group("", jwt)
	ag.POST("/logout", api.logout)
	ag.GET("/me", api.me)
}

// Handlers

// login authenticates against the identity provider and hydrates the registry
// before handing back a token; a signed-in caller always reads a warm cache.
func (api *sessionApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	actor, err := api.idp.SignIn(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == auth.ErrBadCredentials {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "signing in")
	}

	api.reg.Load(ctx.Request().Context(), actor)

	token, err := GenerateToken(GetActorClaims(actor))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Actor: actor})
}

func (api *sessionApi) logout(ctx echo.Context) error {
	if err := api.idp.SignOut(ctx.Request().Context()); err != nil {
		return errors.Wrap(err, "signing out")
	}
	api.reg.Reset()
	return ctx.NoContent(http.StatusNoContent)
}

func (api *sessionApi) me(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return ctx.JSON(http.StatusOK, claims.Actor())
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string     `json:"token"`
		Actor auth.Actor `json:"actor"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
