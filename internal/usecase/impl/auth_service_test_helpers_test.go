package impl

import (
	"io"
	"log/slog"

	"identity/internal/domain/validation"
	"identity/internal/usecase"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestValidator() *validation.CredentialsValidator {
	return validation.NewCredentialsValidator(validation.Policy{MinLength: 6})
}

func credentials(email, password string) usecase.CredentialsInput {
	return usecase.CredentialsInput{Email: &email, Password: &password}
}

func registerInput(email, password string) usecase.RegisterInput {
	return usecase.RegisterInput{CredentialsInput: credentials(email, password)}
}

func loginInput(email, password string) usecase.LoginInput {
	return usecase.LoginInput{CredentialsInput: credentials(email, password)}
}
