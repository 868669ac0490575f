package chain

// AccountID identifies the submitter of an intent.
type AccountID string

// IAuthenticator checks the origin of a submission and resolves it to the
// account that signed it.
type IAuthenticator interface {
	// Authenticate returns the account behind the origin, or an
	// Unauthorized error.
	Authenticate(origin string) (AccountID, error)
}

// signedOriginAuth accepts any non-empty origin and treats the origin string
// itself as the account id. Unsigned (empty) origins are rejected.
type signedOriginAuth struct{}

// NewSignedOriginAuth creates the default authenticator.
func NewSignedOriginAuth() IAuthenticator {
	return signedOriginAuth{}
}

func (signedOriginAuth) Authenticate(origin string) (AccountID, error) {
	if origin == "" {
		return "", NewError(RetCUnauthorized, "submission requires a signed origin")
	}
	return AccountID(origin), nil
}
