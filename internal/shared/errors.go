package shared

import "errors"

// Business error taxonomy. Handlers map these onto HTTP problem responses;
// anything not listed here is an internal failure and must not be translated
// into one of these kinds.
var (
	// ErrDuplicateEmail indicates sign-up with an email already on file.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// deliberately indistinguishable to prevent account enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account has been deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrAccountLocked indicates too many failed login attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidRefreshToken indicates an unknown refresh token value.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the stored refresh token has expired.
	ErrExpiredRefreshToken = errors.New("expired refresh token")
	// ErrUserNotFound indicates a token or id referencing a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotFound indicates a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict on a resource code.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the caller lacks the required authority.
	ErrForbidden = errors.New("forbidden")
)

var businessErrors = []error{
	ErrDuplicateEmail,
	ErrInvalidCredentials,
	ErrAccountInactive,
	ErrAccountLocked,
	ErrInvalidRefreshToken,
	ErrExpiredRefreshToken,
	ErrUserNotFound,
	ErrNotFound,
	ErrDuplicate,
	ErrForbidden,
}

// IsBusinessError reports whether err belongs to the recoverable taxonomy, as
// opposed to an unexpected lower-layer failure.
func IsBusinessError(err error) bool {
	for _, kind := range businessErrors {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
