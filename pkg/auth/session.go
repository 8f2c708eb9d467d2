// Package auth holds the user's session credential and the Google OAuth2
// desktop flow that obtains one.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harrisonrobin/taskbox/pkg/gateway"
	"github.com/harrisonrobin/taskbox/pkg/observable"
	"golang.org/x/oauth2"
)

// TokenFile is the name of the file, inside the config directory, holding
// the session token.
const TokenFile = "token.json"

// Session is the stored credential. It is an oauth2.TokenSource, so
// gateways attach it to outgoing requests directly.
type Session struct {
	path string

	mu            sync.Mutex
	token         *oauth2.Token
	authenticated *observable.Value[bool]
}

var _ oauth2.TokenSource = (*Session)(nil)

// OpenSession loads the token stored at path. A missing file opens a
// signed-out session.
func OpenSession(path string) (*Session, error) {
	s := &Session{path: path}
	tok, err := tokenFromFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	s.token = tok
	s.authenticated = observable.NewValue(tok != nil)
	return s, nil
}

// CurrentCredential returns a copy of the token, if there is one.
func (s *Session) CurrentCredential() (*oauth2.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, false
	}
	tok := *s.token
	return &tok, true
}

// Token implements oauth2.TokenSource. It fails with
// gateway.ErrPreconditionFailed when signed out.
func (s *Session) Token() (*oauth2.Token, error) {
	tok, ok := s.CurrentCredential()
	if !ok {
		return nil, gateway.ErrPreconditionFailed
	}
	return tok, nil
}

func (s *Session) IsAuthenticated() observable.Observable[bool] {
	return s.authenticated
}

// SignIn stores tok, replacing any previous credential.
func (s *Session) SignIn(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("sign in: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := saveToken(s.path, tok); err != nil {
		return err
	}
	cp := *tok
	s.token = &cp
	s.authenticated.Set(true)
	return nil
}

// SignOut forgets the credential and removes the token file.
func (s *Session) SignOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token %s: %w", s.path, err)
	}
	s.token = nil
	s.authenticated.Set(false)
	return nil
}

// tokenFromFile reads an oauth2.Token from a JSON file.
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token file %s holds no access token", file)
	}
	return tok, nil
}

// saveToken writes tok readable by the owner only.
func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
