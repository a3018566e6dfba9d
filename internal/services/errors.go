package services

import (
	"errors"
	"fmt"
)

// ErrorKind: закрытый набор исходов операций AuthService.
// Каждый вид маппится на HTTP-статус в handlers без default-ветки.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindEmailAlreadyRegistered
	KindInvalidCredentials
	KindInvalidRefreshToken
	KindInvalidToken
	KindCurrentPasswordIncorrect
	KindResetInvalidOrExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindEmailAlreadyRegistered:
		return "email_already_registered"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindInvalidRefreshToken:
		return "invalid_refresh_token"
	case KindInvalidToken:
		return "invalid_token"
	case KindCurrentPasswordIncorrect:
		return "current_password_incorrect"
	case KindResetInvalidOrExpired:
		return "reset_invalid_or_expired"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind   ErrorKind
	Fields map[string]string // только для KindValidation
	Err    error             // причина, только для логов
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %v", e.Kind, e.Fields)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по виду, чтобы errors.Is(err, ErrInvalidCredentials) работал.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation               = &Error{Kind: KindValidation}
	ErrEmailAlreadyRegistered   = &Error{Kind: KindEmailAlreadyRegistered}
	ErrInvalidCredentials       = &Error{Kind: KindInvalidCredentials}
	ErrInvalidRefreshToken      = &Error{Kind: KindInvalidRefreshToken}
	ErrInvalidToken             = &Error{Kind: KindInvalidToken}
	ErrCurrentPasswordIncorrect = &Error{Kind: KindCurrentPasswordIncorrect}
	ErrResetInvalidOrExpired    = &Error{Kind: KindResetInvalidOrExpired}
)

// KindOf возвращает вид ошибки; всё, что не *Error, считается внутренней.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func internal(err error) error {
	return &Error{Kind: KindInternal, Err: err}
}

func validation(fields map[string]string) error {
	return &Error{Kind: KindValidation, Fields: fields}
}
