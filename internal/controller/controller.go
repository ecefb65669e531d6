package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/scioarena/scioarena/internal/apperr"
	"github.com/scioarena/scioarena/internal/dto"
	"github.com/scioarena/scioarena/internal/service"
)

const actorKey = "actorUserID"

// ActorMiddleware extracts the authenticated user id supplied by the
// session provider (an external collaborator) via the X-User-ID header.
// The engine authorizes against memberships; it never authenticates.
func ActorMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw := ctx.GetHeader("X-User-ID")
		if raw == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "missing actor identity",
			})
			return
		}
		userID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:    "UNAUTHENTICATED",
				Message: "invalid actor identity",
			})
			return
		}
		ctx.Set(actorKey, uint(userID))
		ctx.Next()
	}
}

// ActorUserID returns the authenticated user id set by ActorMiddleware.
func ActorUserID(ctx *gin.Context) uint {
	return ctx.GetUint(actorKey)
}

// UintParam parses a numeric path parameter.
func UintParam(ctx *gin.Context, name string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    "INVALID_INPUT",
			Message: "invalid " + name + " format",
		})
		return 0, false
	}
	return uint(val), true
}

// ClientInfo captures the request's forensic metadata.
func ClientInfo(ctx *gin.Context, fingerprint string) service.ClientInfo {
	return service.ClientInfo{
		Fingerprint: fingerprint,
		IP:          ctx.ClientIP(),
		UserAgent:   ctx.Request.UserAgent(),
	}
}

// WriteError maps an engine error onto an HTTP response. Policy and state
// errors keep their specific message and code; dependency failures get a
// generic message with the detail logged server-side only.
func WriteError(ctx *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Message: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	message := ae.Message
	switch ae.Kind {
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidState:
		status = http.StatusConflict
	case apperr.KindPolicy:
		status = http.StatusForbidden
	case apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindDependency:
		message = "a dependency failed; please try again"
	}
	ctx.JSON(status, dto.ErrorResponse{Code: ae.Code, Message: message})
}
