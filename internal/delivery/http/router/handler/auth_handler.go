// Package handler contains the HTTP handlers for the application.
package handler

import (
	"net/http"
	"strings"

	"identity/internal/delivery/http/response"
	"identity/internal/domain/entity"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/errors"
	"identity/internal/infra/metrics"
	"identity/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	operationRegister = "register"
	operationLogin    = "login"
	outcomeSuccess    = "success"
	outcomeInternal   = "INTERNAL_ERROR"
)

// AuthHandler holds dependencies for the register and login handlers.
type AuthHandler struct {
	uc      usecase.AuthUsecase
	metrics *metrics.Metrics
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		uc:      uc,
		metrics: m,
	}
}

// Register handles the account registration request.
func (h *AuthHandler) Register(c echo.Context) error {
	creds, err := bindCredentials(c)
	if err != nil {
		h.record(operationRegister, err)

		return err
	}

	output, err := h.uc.Register(c.Request().Context(), usecase.RegisterInput{CredentialsInput: creds})
	h.record(operationRegister, err)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, toAccountView(output.Account), "Account created")
}

// Login handles the login request.
func (h *AuthHandler) Login(c echo.Context) error {
	creds, err := bindCredentials(c)
	if err != nil {
		h.record(operationLogin, err)

		return err
	}

	output, err := h.uc.Login(c.Request().Context(), usecase.LoginInput{CredentialsInput: creds})
	h.record(operationLogin, err)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toAccountView(output.Account), "Login successful")
}

// bindCredentials reads email and password from a JSON or form-urlencoded body.
// Fields that are absent stay nil so the validator can tell missing from empty.
func bindCredentials(c echo.Context) (usecase.CredentialsInput, error) {
	var creds usecase.CredentialsInput

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationForm) || strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		form, err := c.FormParams()
		if err != nil {
			return creds, domainerrors.ErrInvalidPayload.WithDetails("malformed form body")
		}

		if values, ok := form["email"]; ok && len(values) > 0 {
			creds.Email = &values[0]
		}
		if values, ok := form["password"]; ok && len(values) > 0 {
			creds.Password = &values[0]
		}

		return creds, nil
	}

	if err := (&echo.DefaultBinder{}).BindBody(c, &creds); err != nil {
		return creds, domainerrors.ErrInvalidPayload.WithDetails("request body must be an object with string email and password")
	}

	return creds, nil
}

func (h *AuthHandler) record(operation string, err error) {
	if h.metrics == nil {
		return
	}

	outcome := outcomeSuccess
	if err != nil {
		outcome = outcomeInternal
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			outcome = appErr.ErrorCode()
		}
	}

	h.metrics.RecordAuthOutcome(operation, outcome)
}

func toAccountView(account *entity.Account) response.AccountView {
	return response.AccountView{
		ID:    account.ID,
		Email: account.Email,
	}
}
