package login

import (
	"errors"
	"fmt"

	"github.com/ZentaChain/ntlink/pkg/service"
)

var (
	ErrInProgress      = errors.New("another login attempt is in flight")
	ErrDisposed        = errors.New("bot context is disposed")
	ErrNoChallenge     = errors.New("no matching challenge is pending")
	ErrNotLoggedIn     = errors.New("not authenticated")
	ErrNoPassword      = errors.New("password is required")
	ErrQRCodeExpired   = errors.New("qr code expired")
	ErrQRCodeCancelled = errors.New("qr code login cancelled")
)

// LoginError is a rejected attempt carrying the server's tip
type LoginError struct {
	Code    service.LoginCode
	Title   string
	Message string
	JumpURL string
}

func (e *LoginError) Error() string {
	if e.Title == "" && e.Message == "" {
		return fmt.Sprintf("login failed: %s", e.Code)
	}
	return fmt.Sprintf("login failed: %s: %s %s", e.Code, e.Title, e.Message)
}

// ChallengeError means the attempt needs another credential. The machine
// stays challenged until it is submitted.
type ChallengeError struct {
	Kind Challenge
	URL  string
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("login requires %s verification: %s", e.Kind, e.URL)
}
