package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/middleware"
)

// classify maps a pipeline or binding error to an HTTP status and error code.
func classify(err error) (int, string) {
	var (
		insufficient *domain.InsufficientDataError
		degenerate   *domain.DegenerateTimeAxisError
		validation   *domain.ValidationError
		bindErrs     validator.ValidationErrors
		renderErr    *domain.RenderError
	)

	switch {
	case errors.As(err, &insufficient):
		return http.StatusBadRequest, domain.ErrInsufficientData
	case errors.As(err, &degenerate):
		return http.StatusBadRequest, domain.ErrDegenerateTimeAxis
	case errors.As(err, &validation), errors.As(err, &bindErrs):
		return http.StatusBadRequest, domain.ErrValidation
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError, domain.ErrRender
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, domain.ErrInternalServer
	default:
		return http.StatusInternalServerError, domain.ErrInternalServer
	}
}

var errorMessages = map[string]string{
	domain.ErrInsufficientData:   "At least two measurements are required",
	domain.ErrDegenerateTimeAxis: "Measurements must span more than one date",
	domain.ErrValidation:         "Request validation failed",
	domain.ErrInvalidInput:       "Malformed request body",
	domain.ErrRender:             "Report rendering failed",
	domain.ErrInternalServer:     "Internal server error",
}

// respondError writes the JSON error envelope for err.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	details := err.Error()
	if status >= http.StatusInternalServerError {
		// Internal causes stay in the log.
		details = ""
	}
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, errorMessages[code], details, c.GetString(middleware.RequestIDKey)))
}

// respondBindError writes the envelope for a request that failed to decode or
// bind. Validator failures are validation errors, everything else is malformed
// input.
func respondBindError(c *gin.Context, err error) {
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
			domain.ErrValidation, errorMessages[domain.ErrValidation], describeFieldErrors(bindErrs),
			c.GetString(middleware.RequestIDKey)))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(
		domain.ErrInvalidInput, errorMessages[domain.ErrInvalidInput], err.Error(),
		c.GetString(middleware.RequestIDKey)))
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// formMessage is the message shown above the entry form.
func formMessage(err error) string {
	var (
		insufficient *domain.InsufficientDataError
		degenerate   *domain.DegenerateTimeAxisError
		validation   *domain.ValidationError
		bindErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &insufficient):
		return fmt.Sprintf("Informe pelo menos %d exames.", insufficient.Required)
	case errors.As(err, &degenerate):
		return "Os exames precisam ter datas diferentes."
	case errors.As(err, &validation):
		return fmt.Sprintf("Dado inválido em %s: %s.", validation.Field, validation.Message)
	case errors.As(err, &bindErrs):
		return "Dados do paciente inválidos: " + describeFieldErrors(bindErrs) + "."
	default:
		return "Não foi possível gerar o relatório."
	}
}
