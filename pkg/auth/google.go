package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/tasks/v1"
)

const (
	// ClientSecretsFile is the downloaded Google API credentials.json,
	// expected in the config directory.
	ClientSecretsFile = "credentials.json"

	// LocalhostAuthPort is the port the local web server listens on to
	// capture the OAuth redirect.
	LocalhostAuthPort = "6789"
)

// Scopes are the Google API scopes taskbox asks for.
var Scopes = []string{tasks.TasksScope}

// GetConfig creates an oauth2.Config from the client secrets file. Localhost
// and out-of-band redirect URLs are pointed at LocalhostAuthPort.
func GetConfig(clientSecretsFile string, logger *slog.Logger, scopes ...string) (*oauth2.Config, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	parsedURL, parseErr := url.Parse(config.RedirectURL)
	switch {
	case parseErr != nil:
		logger.Warn("could not parse redirect URL, using it as is", "url", config.RedirectURL, "error", parseErr)
	case config.RedirectURL == "urn:ietf:wg:oauth:2.0:oob":
		config.RedirectURL = fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
		logger.Info("overriding out-of-band redirect URL", "url", config.RedirectURL)
	case parsedURL.Hostname() == "localhost" || parsedURL.Hostname() == "127.0.0.1":
		if parsedURL.Port() != LocalhostAuthPort {
			if parsedURL.Port() != "" {
				logger.Warn("forcing localhost redirect port", "configured", parsedURL.Port(), "port", LocalhostAuthPort)
			}
			parsedURL.Host = net.JoinHostPort(parsedURL.Hostname(), LocalhostAuthPort)
			config.RedirectURL = parsedURL.String()
		}
	default:
		logger.Warn("redirect URL is not a localhost callback", "url", config.RedirectURL)
	}

	return config, nil
}

// GoogleClient returns an HTTP client authorized with the session token.
// Refreshed tokens are written back to the session. When the session is
// signed out every request fails with gateway.ErrPreconditionFailed.
func GoogleClient(ctx context.Context, config *oauth2.Config, session *Session, logger *slog.Logger) *http.Client {
	tok, ok := session.CurrentCredential()
	if !ok {
		return oauth2.NewClient(ctx, session)
	}
	return oauth2.NewClient(ctx, &persistingSource{
		base:    config.TokenSource(ctx, tok),
		session: session,
		last:    tok,
		logger:  logger,
	})
}

// persistingSource saves every token that differs from the last one seen.
type persistingSource struct {
	base    oauth2.TokenSource
	session *Session
	last    *oauth2.Token
	logger  *slog.Logger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last.AccessToken || (tok.RefreshToken != "" && tok.RefreshToken != p.last.RefreshToken) {
		if tok.RefreshToken == "" {
			tok.RefreshToken = p.last.RefreshToken
		}
		if err := p.session.SignIn(tok); err != nil && p.logger != nil {
			p.logger.Warn("could not save refreshed token", "error", err)
		}
		p.last = tok
	}
	return tok, nil
}

// AuthorizeGoogle runs the authorization code flow through a local web
// server: it prints the consent URL to out, waits for the redirect and
// exchanges the code for a token.
func AuthorizeGoogle(ctx context.Context, config *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL %s: %w", config.RedirectURL, err)
	}
	port := redirect.Port()
	if port == "" {
		port = LocalhostAuthPort
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", port))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", port, err)
	}
	defer listener.Close()

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		Handler:      callbackHandler(state, codeCh, errCh),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()
	defer server.Shutdown(context.Background())

	// AccessTypeOffline makes Google return a refresh token.
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(out, "Open the following URL in your browser to authorize taskbox:\n%s\n", authURL)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization not completed: %w", ctx.Err())
	}
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var err error
		switch {
		case q.Get("state") != state:
			err = errors.New("state mismatch in redirect URL")
		case q.Get("error") != "":
			err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			err = errors.New("authorization code not found in redirect URL")
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			select {
			case errCh <- err:
			default:
			}
			return
		}
		fmt.Fprint(w, "Authentication successful! You can close this window.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	})
}
