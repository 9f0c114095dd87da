package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apiapps "github.com/1800agents/saki/pkg/api/types/apps"
	apierr "github.com/1800agents/saki/pkg/api/types/errors"
	"github.com/1800agents/saki/pkg/domain/apps/service"
	"github.com/1800agents/saki/pkg/domain/auth"
	kerr "github.com/1800agents/saki/pkg/domain/errors"
)

// context key the session middleware stores the verified caller under.
const identityKey = "saki/identity"

// WithSession verifies the bearer token of each request and stores the
// caller identity for the handlers downstream.
func WithSession(verifier auth.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				return apierr.Unauthorized(
					`pass a session token as "Authorization: Bearer <token>"`, nil,
				)
			}

			who, err := verifier.Verify(token)
			if err != nil {
				return apierr.Unauthorized("session token is invalid or expired", err)
			}

			c.Set(identityKey, who)
			return next(c)
		}
	}
}

func identityOf(c echo.Context) auth.Identity {
	who, _ := c.Get(identityKey).(auth.Identity)
	return who
}

// translate a domain error into the HTTP error it maps to.
func asHTTPError(err error) *echo.HTTPError {
	switch {
	case kerr.AsInvalidInput(err):
		return apierr.BadRequest(err.Error(), err)
	case kerr.AsNamespaceViolation(err):
		// rejected before any orchestrator call; a bad request, not a
		// permission problem.
		return apierr.BadRequest(err.Error(), err)
	case kerr.AsMissing(err):
		return apierr.NotFound()
	case kerr.AsConflict(err):
		return apierr.Conflict(
			"the app changed while writing",
			apierr.WithAdvice("re-read the app and retry the request"),
			apierr.WithError(err),
		)
	case kerr.AsForbidden(err):
		return apierr.Forbidden(err.Error(), err)
	default:
		return apierr.InternalServerError(err)
	}
}

func PreparePushHandler(svc service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apiapps.PrepareRequest{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest,
				"format error",
				apierr.WithAdvice(err.Error()),
				apierr.WithError(err),
			)
		}

		grant, err := svc.PreparePush(ctx, identityOf(c), req.Name, req.GitCommit)
		if err != nil {
			return asHTTPError(err)
		}

		return c.JSON(http.StatusOK, apiapps.ComposePushGrant(grant))
	}
}

func DeployAppHandler(svc service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req := apiapps.DeployRequest{}
		decoder := json.NewDecoder(c.Request().Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return apierr.NewErrorMessage(
				http.StatusBadRequest,
				"format error",
				apierr.WithAdvice(err.Error()),
				apierr.WithError(err),
			)
		}

		r, err := svc.UpsertApp(ctx, identityOf(c), service.AppSpec{
			Name:        req.Name,
			Description: req.Description,
			Image:       req.Image,
		})
		if err != nil {
			return asHTTPError(err)
		}

		return c.JSON(http.StatusOK, apiapps.ComposeDeployed(r))
	}
}

func ListAppsHandler(svc service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		all := c.QueryParam("all") == "true"

		records, err := svc.ListApps(ctx, identityOf(c), all)
		if err != nil {
			return asHTTPError(err)
		}

		found := make([]apiapps.Detail, 0, len(records))
		for _, r := range records {
			found = append(found, apiapps.ComposeDetail(r))
		}
		return c.JSON(http.StatusOK, found)
	}
}

func GetAppHandler(svc service.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		r, err := svc.GetApp(ctx, identityOf(c), c.Param(paramKey))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiapps.ComposeDetail(r))
	}
}

func StopAppHandler(svc service.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		r, err := svc.StopApp(ctx, identityOf(c), c.Param(paramKey))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiapps.ComposeDetail(r))
	}
}

func StartAppHandler(svc service.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		r, err := svc.StartApp(ctx, identityOf(c), c.Param(paramKey))
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiapps.ComposeDetail(r))
	}
}

func DeleteAppHandler(svc service.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if err := svc.DeleteApp(ctx, identityOf(c), c.Param(paramKey)); err != nil {
			return asHTTPError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetLogsHandler(svc service.Service, paramKey string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		limit := 0
		if raw := c.QueryParam("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return apierr.BadRequest(`"limit" should be an integer`, err)
			}
			limit = parsed
		}

		page, err := svc.Logs(
			ctx, identityOf(c), c.Param(paramKey), c.QueryParam("cursor"), limit,
		)
		if err != nil {
			return asHTTPError(err)
		}
		return c.JSON(http.StatusOK, apiapps.ComposeLogPage(page))
	}
}
