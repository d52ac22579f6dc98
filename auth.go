package googleai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// generativeLanguageScope is the OAuth scope of the Generative Language API.
const generativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

// defaultTokenURL is Google's OAuth token endpoint, used when the key file
// does not name one.
const defaultTokenURL = "https://oauth2.googleapis.com/token"

// serviceAccountKey is the subset of a Google service-account key file the
// signed-assertion flow needs.
type serviceAccountKey struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// serviceAccountTokenSource builds a cached token source from service-account
// key JSON. Tokens are obtained with a signed JWT assertion and refreshed
// automatically when they expire.
func serviceAccountTokenSource(ctx context.Context, data []byte) (oauth2.TokenSource, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("googleai: parsing service account key: %w", err)
	}
	if key.Type != "service_account" {
		return nil, fmt.Errorf("googleai: key type %q is not a service account", key.Type)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, fmt.Errorf("googleai: service account key is missing client_email or private_key")
	}
	tokenURL := key.TokenURI
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	cfg := &jwt.Config{
		Email:        key.ClientEmail,
		PrivateKey:   []byte(key.PrivateKey),
		PrivateKeyID: key.PrivateKeyID,
		TokenURL:     tokenURL,
		Scopes:       []string{generativeLanguageScope},
	}
	return cfg.TokenSource(ctx), nil
}

// serviceAccountFileTokenSource reads a key file and builds its token source.
func serviceAccountFileTokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("googleai: reading service account key: %w", err)
	}
	return serviceAccountTokenSource(ctx, data)
}
