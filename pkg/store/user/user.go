// Package user loads and saves the flat-file user records referenced
// by permission checks and collection ownership.
//
// The core never creates credentials; password hashes are written by
// the external auth layer and treated as opaque here.
package user

import (
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"github.com/octospacc/Pignio/pkg/metadata"
)

// User is a stored user record.
type User struct {
	Username string

	// Password is the opaque password hash written by the auth layer.
	Password string

	// Roles grants elevated permission when it contains "admin".
	Roles []string

	// Tokens holds API credential records of the form "label:hash".
	Tokens []string

	// Items is the user's default pinned list, in pin order.
	Items []string
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	for _, role := range u.Roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// VerifyToken checks a presented API token against the user's stored
// token records.
func (u *User) VerifyToken(token string) bool {
	hashed := HashToken(token)
	for _, record := range u.Tokens {
		if strings.HasSuffix(record, ":"+hashed) {
			return true
		}
	}
	return false
}

// HashToken returns the stored form of an API token: urlsafe base64 of
// its SHA-256 digest.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// SlugifyName normalizes a username the way record filenames are
// built, so lookups are insensitive to case and exotic characters.
func SlugifyName(username string) string {
	return slug.Make(username)
}

// Store reads and writes user records under a single root directory.
type Store struct {
	root   string
	backup bool
}

// NewStore creates a user record store rooted at root.
func NewStore(root string, backup bool) *Store {
	return &Store{root: root, backup: backup}
}

// Path returns the record file path for a username.
func (s *Store) Path(username string) string {
	return filepath.Join(s.root, SlugifyName(username)+metadata.MetaExt)
}

// Dir returns the user's collection subdirectory.
func (s *Store) Dir(username string) string {
	return filepath.Join(s.root, SlugifyName(username))
}

// Load reads a user record. Returns (nil, nil) when no record exists.
func (s *Store) Load(username string) (*User, error) {
	fields, err := metadata.ReadFile(s.Path(username))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	return &User{
		Username: SlugifyName(username),
		Password: fields.Scalar("password"),
		Roles:    fields.List("roles"),
		Tokens:   fields.List("tokens"),
		Items:    fields.List("items"),
	}, nil
}

// Save writes a user record back to disk.
func (s *Store) Save(u *User) error {
	fields := metadata.Fields{}
	fields.SetScalar("password", u.Password)
	fields.SetList("roles", u.Roles)
	fields.SetList("tokens", u.Tokens)
	fields.SetList("items", u.Items)

	return metadata.WriteFile(s.Path(u.Username), fields, s.backup)
}

// Count returns the number of stored user records.
func (s *Store) Count() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.root, "*"+metadata.MetaExt))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}
