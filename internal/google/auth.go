package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	oauth2google "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
)

// ErrNoCredentials marks a gateway that was constructed without a service
// account. Reads degrade to empty data, writes surface it as a failure.
var ErrNoCredentials = errors.New("google credentials are not configured")

// Scopes requested for the service account. Calendar and Sheets share one
// credentials blob.
var Scopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/spreadsheets",
}

// LoadCredentials parses a service-account JSON blob. A missing blob is not
// an error at startup; it returns ErrNoCredentials so the caller can run in
// degraded mode.
func LoadCredentials(ctx context.Context, blob string) (*oauth2google.Credentials, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, ErrNoCredentials
	}
	creds, err := oauth2google.CredentialsFromJSON(ctx, []byte(blob), Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return creds, nil
}

// FailureKind classifies a gateway error for metrics and logging:
// "auth" for credential problems, "transient" for everything else.
func FailureKind(err error) string {
	if errors.Is(err, ErrNoCredentials) {
		return "auth"
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 401, 403:
			return "auth"
		}
	}
	return "transient"
}
