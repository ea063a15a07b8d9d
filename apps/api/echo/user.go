package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/user"
	"github.com/mrembo/urembo/storage/cache"
)

type userApi struct {
	svc       user.Service
	blacklist cache.TokenBlacklist
	validate  *validator.Validate
}

func registerUserAPI(
	g *echo.Group,
	authed []echo.MiddlewareFunc,
	svc user.Service,
	blacklist cache.TokenBlacklist,
	validate *validator.Validate,
) {
	api := userApi{
		svc:       svc,
		blacklist: blacklist,
		validate:  validate,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/login", api.login)
	ag.POST("/signup", api.signup)
	ag.POST("/refresh", api.refresh)
	ag.POST("/logout", api.logout, authed...)

	// authed endpoints
	ug := g.Group("/user", authed...)
	ug.GET("/me", api.me)
	ug.GET("/all", api.queryAll, adminMiddleware())
	ug.PATCH("/activate-status/:id", api.setActiveStatus, adminMiddleware())
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx.Request().Context(), data.Username, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	cookie, err := newRefreshCookie(*claims)
	if err != nil {
		return err
	}
	ctx.SetCookie(cookie)

	return ctx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	reqCtx := ctx.Request().Context()
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// refresh exchanges a valid refresh cookie for a fresh access token.
// The refresh window opened at first login is never extended.
func (api *userApi) refresh(ctx echo.Context) error {
	cookie, err := ctx.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return errUnauthorized
	}
	claims, err := ParseToken(cookie.Value)
	if err != nil {
		return errUnauthorized
	}

	reqCtx := ctx.Request().Context()
	if revoked, bErr := api.blacklist.Contains(reqCtx, claims.Id); bErr != nil {
		return errors.Wrap(bErr, "checking token blacklist")
	} else if revoked {
		return errUnauthorized
	}

	uid, err := claims.UserID()
	if err != nil {
		return errUnauthorized
	}
	usr, err := api.svc.GetByID(reqCtx, uid)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errUnauthorized
		}
		return errors.Wrap(err, "finding user by ID")
	}

	// check if user is still active
	if !usr.IsActive {
		return errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return errRefreshExpired
	}

	newClaims := GetUserClaims(usr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	newCookie, err := newRefreshCookie(*newClaims)
	if err != nil {
		return err
	}
	ctx.SetCookie(newCookie)

	return ctx.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// logout revokes the access token (and refresh token when present) until
// their natural expiry, and drops the refresh cookie.
func (api *userApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	if err = api.blacklist.Add(reqCtx, claims.Id, time.Until(time.Unix(claims.ExpiresAt, 0))); err != nil {
		return errors.Wrap(err, "revoking access token")
	}

	if cookie, cErr := ctx.Cookie(refreshCookieName); cErr == nil && cookie.Value != "" {
		if refClaims, pErr := ParseToken(cookie.Value); pErr == nil {
			if err = api.blacklist.Add(reqCtx, refClaims.Id, time.Until(time.Unix(refClaims.ExpiresAt, 0))); err != nil {
				return errors.Wrap(err, "revoking refresh token")
			}
		}
	}
	ctx.SetCookie(clearedRefreshCookie())

	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "logged out"})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) queryAll(ctx echo.Context) error {
	users, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) setActiveStatus(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	status, err := strconv.ParseBool(ctx.QueryParam("status"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be a boolean")
	}

	reqCtx := ctx.Request().Context()
	usr, err := api.svc.GetByID(reqCtx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}

	usr, err = api.svc.SetActiveStatus(reqCtx, usr, status)
	if err != nil {
		return errors.Wrap(err, "setting active status")
	}
	return ctx.JSON(http.StatusOK, usr)
}
