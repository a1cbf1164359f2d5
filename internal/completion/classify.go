// Package completion wraps the external model call: it bounds the wait,
// classifies failures and moderates what comes back.
package completion

import (
	"context"
	"errors"
	"net"
	"net/http"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/askai/askai/internal/adapter"
	"github.com/askai/askai/internal/scanner"
)

// Kind separates failures the user may retry from those operators must see.
type Kind string

const (
	Transient Kind = "transient"
	Fatal     Kind = "fatal"
)

// Failure is a classified external call error.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string { return string(f.Kind) + ": " + f.Err.Error() }

func (f *Failure) Unwrap() error { return f.Err }

// Transient reports whether a user-initiated retry is appropriate.
func (f *Failure) Transient() bool { return f.Kind == Transient }

// Classify sorts err into Transient or Fatal. Connectivity problems,
// timeouts, rate limiting and provider-side unavailability are transient;
// everything else (bad requests, authentication, exhausted quota) is fatal.
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	if transient(err) {
		return &Failure{Kind: Transient, Err: err}
	}
	return &Failure{Kind: Fatal, Err: err}
}

func transient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var oaiAPI *openai.APIError
	if errors.As(err, &oaiAPI) {
		if oaiAPI.Code == "insufficient_quota" || oaiAPI.Type == "insufficient_quota" {
			return false
		}
		return transientStatus(oaiAPI.HTTPStatusCode)
	}
	var oaiReq *openai.RequestError
	if errors.As(err, &oaiReq) {
		return transientStatus(oaiReq.HTTPStatusCode)
	}

	var antAPI *anthropic.APIError
	if errors.As(err, &antAPI) {
		switch string(antAPI.Type) {
		case "rate_limit_error", "overloaded_error", "api_error":
			return true
		}
		return false
	}
	var antReq *anthropic.RequestError
	if errors.As(err, &antReq) {
		return transientStatus(antReq.StatusCode)
	}

	var status *adapter.StatusError
	if errors.As(err, &status) {
		return transientStatus(status.StatusCode)
	}
	var scanStatus *scanner.StatusError
	if errors.As(err, &scanStatus) {
		return transientStatus(scanStatus.StatusCode)
	}

	// Anything that never got an HTTP answer: refused connections, DNS
	// failures, resets and client timeouts.
	var netErr net.Error
	return errors.As(err, &netErr)
}

func transientStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}
