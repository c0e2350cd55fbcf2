package log

import (
	"errors"

	"github.com/getsentry/sentry-go"
)

var ErrClientInit = errors.New("failed to initialize sentry client")

// NewSentryClient binds a new sentry client to the current hub. Batch runs report
// errors only, so tracing is left disabled.
func NewSentryClient(dsn string, buildVersion string, environment string) (*sentry.Client, error) {
	hub := sentry.CurrentHub()

	client, errClient := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		SampleRate:  1.0,
		Release:     buildVersion,
		Environment: environment,
	})
	if errClient != nil {
		return nil, errors.Join(errClient, ErrClientInit)
	}

	hub.BindClient(client)

	return client, nil
}
