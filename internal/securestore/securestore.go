// Package securestore holds a third-party bearer token for the lifetime of
// the application session. The token is obfuscated (chunked, reversed,
// padded with decoys), then encrypted under a key derived from ambient
// environment attributes, then written to the session-scoped store.
//
// The environment key is derived from observable, non-secret state. It is a
// best-effort deterrent against casual storage inspection, not a security
// boundary: anyone able to run code in the same environment can re-derive
// it. The real protection for the token is the shortness of its life - it
// never touches durable storage.
package securestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/quotakeeper/internal/crypto"
	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
)

const (
	// secureSalt - фиксированная соль environment-ключа
	secureSalt = "xerox_secure_salt_2025"
	// tokenChunkSize - размер куска токена при обфускации
	tokenChunkSize = 8
	// TokenMaxAge - максимальный возраст сохраненного токена
	TokenMaxAge = 24 * time.Hour
	// formatVersion - версия формата SecureTokenRecord
	formatVersion = "1.0"
	// userAgentLimit - столько символов user agent входит в fingerprint
	userAgentLimit = 50
)

// Environment are the ambient attributes the storage key is derived from.
// Injected explicitly so tests (and callers) control the fingerprint.
type Environment struct {
	UserAgent string
	Language  string
	Platform  string
}

// DetectEnvironment builds the Environment from the running process.
func DetectEnvironment() Environment {
	lang := os.Getenv("LANG")
	if lang == "" {
		lang = "en-US"
	}
	return Environment{
		UserAgent: fmt.Sprintf("quotakeeper/2.0 (%s; %s)", runtime.GOOS, runtime.GOARCH),
		Language:  lang,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// TokenValidation is the result of a syntactic token format check.
type TokenValidation struct {
	Type  string
	Error string
	Valid bool
}

// Known GitHub token shapes. Purely syntactic, no network calls.
var tokenPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"classic", regexp.MustCompile(`^ghp_[a-zA-Z0-9]{36}$`)},
	{"finegrained", regexp.MustCompile(`^github_pat_[a-zA-Z0-9_]{82}$`)},
	{"app", regexp.MustCompile(`^ghs_[a-zA-Z0-9]{36}$`)},
}

// obfuscatedToken is the shuffled encoding of the raw token: chunks in
// reverse order (p), decoy strings (d), true length (l), created-at (c).
type obfuscatedToken struct {
	Chunks []string `json:"p"`
	Decoys []string `json:"d"`
	Length int      `json:"l"`
	Create int64    `json:"c"`
}

// secureRecord is the plaintext of the encrypted envelope stored under
// xerox-encrypted-tokens.
type secureRecord struct {
	Token      string `json:"token"` // obfuscated, never raw
	Repository string `json:"repository"`
	Version    string `json:"version"`
	Timestamp  int64  `json:"timestamp"`
}

// Store obfuscates and persists the bearer token in session-scoped storage.
type Store struct {
	session storage.Store
	logger  *slog.Logger
	env     Environment
	now     func() time.Time
}

// New creates a secure token store over the session-scoped storage.
func New(session storage.Store, env Environment, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		session: session,
		env:     env,
		logger:  logger,
		now:     time.Now,
	}
}

// environmentKey digests the ambient fingerprint into the encryption
// passphrase. The current day number is part of the material, so the key
// rolls over at midnight and older envelopes stop decrypting - treated as
// "no usable token", which the 24h age limit makes moot anyway.
func (s *Store) environmentKey() string {
	fingerprint := struct {
		UserAgent string `json:"userAgent"`
		Language  string `json:"language"`
		Platform  string `json:"platform"`
		Timestamp int64  `json:"timestamp"`
	}{
		UserAgent: truncate(s.env.UserAgent, userAgentLimit),
		Language:  s.env.Language,
		Platform:  s.env.Platform,
		Timestamp: s.now().UnixMilli() / (24 * time.Hour).Milliseconds(),
	}

	material, _ := json.Marshal(fingerprint)
	return crypto.Digest(string(material) + secureSalt)
}

// SaveToken obfuscates, encrypts and stores the token with its target
// repository identifier. The raw token never reaches storage in cleartext.
func (s *Store) SaveToken(ctx context.Context, token, repository string) error {
	record := secureRecord{
		Token:      s.obfuscate(token),
		Repository: repository,
		Timestamp:  s.now().UnixMilli(),
		Version:    formatVersion,
	}

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	envelope, err := crypto.Encrypt(string(data), s.environmentKey())
	if err != nil {
		return fmt.Errorf("failed to encrypt token record: %w", err)
	}

	if err := s.session.Put(ctx, storage.KeyEncryptedTokens, []byte(envelope)); err != nil {
		return fmt.Errorf("failed to store token record: %w", err)
	}
	return nil
}

// GetToken returns the stored token and repository, or nil when nothing
// usable is stored. Decryption and parse failures read as "no token".
func (s *Store) GetToken(ctx context.Context) *models.TokenData {
	envelope, err := s.session.Get(ctx, storage.KeyEncryptedTokens)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to read token envelope", "error", err)
		}
		return nil
	}

	plaintext, err := crypto.Decrypt(string(envelope), s.environmentKey())
	if err != nil {
		s.logger.Warn("token envelope cannot be decrypted", "error", err)
		return nil
	}

	var record secureRecord
	if err := json.Unmarshal([]byte(plaintext), &record); err != nil {
		s.logger.Warn("token record is malformed", "error", err)
		return nil
	}

	token, err := s.deobfuscate(record.Token)
	if err != nil {
		s.logger.Warn("token payload cannot be deobfuscated", "error", err)
		return nil
	}

	return &models.TokenData{
		Token:      token,
		Repository: record.Repository,
		Timestamp:  record.Timestamp,
	}
}

// IsTokenValid reports whether a token exists and is younger than 24h.
func (s *Store) IsTokenValid(ctx context.Context) bool {
	data := s.GetToken(ctx)
	if data == nil {
		return false
	}
	return s.now().UnixMilli()-data.Timestamp < TokenMaxAge.Milliseconds()
}

// Clear removes the stored envelope. Idempotent.
func (s *Store) Clear(ctx context.Context) error {
	return s.session.Delete(ctx, storage.KeyEncryptedTokens)
}

// ValidateTokenFormat checks the token string against the known shapes.
// Returned as a value, never an error.
func (s *Store) ValidateTokenFormat(token string) TokenValidation {
	if token == "" {
		return TokenValidation{Valid: false, Error: "empty token"}
	}

	for _, p := range tokenPatterns {
		if p.pattern.MatchString(token) {
			return TokenValidation{Valid: true, Type: p.name}
		}
	}

	return TokenValidation{
		Valid: false,
		Error: "invalid token format, expected a GitHub personal access token",
	}
}

// MaskToken renders the token safe for display: first and last four
// characters with the middle starred out.
func MaskToken(token string) string {
	if len(token) < 8 {
		return "****"
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

// obfuscate splits the token into fixed-size chunks, reverses their order
// and interleaves decoy chunks. Security theater under real encryption -
// kept as the storage encoding.
func (s *Store) obfuscate(token string) string {
	if token == "" {
		return ""
	}

	var chunks []string
	for i := 0; i < len(token); i += tokenChunkSize {
		end := i + tokenChunkSize
		if end > len(token) {
			end = len(token)
		}
		chunks = append(chunks, token[i:end])
	}

	// Разворачиваем порядок кусков
	for i, j := 0, len(chunks)-1; i < j; i, j = i+1, j-1 {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	}

	decoys := make([]string, len(chunks))
	for i := range decoys {
		decoys[i] = strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenChunkSize]
	}

	payload, _ := json.Marshal(obfuscatedToken{
		Chunks: chunks,
		Decoys: decoys,
		Length: len(token),
		Create: s.now().UnixMilli(),
	})

	return base64.StdEncoding.EncodeToString(payload)
}

// deobfuscate reverses obfuscate: decode, reverse the chunk list, join.
func (s *Store) deobfuscate(obfuscated string) (string, error) {
	if obfuscated == "" {
		return "", nil
	}

	payload, err := base64.StdEncoding.DecodeString(obfuscated)
	if err != nil {
		return "", fmt.Errorf("invalid obfuscated token encoding: %w", err)
	}

	var token obfuscatedToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return "", fmt.Errorf("invalid obfuscated token payload: %w", err)
	}

	for i, j := 0, len(token.Chunks)-1; i < j; i, j = i+1, j-1 {
		token.Chunks[i], token.Chunks[j] = token.Chunks[j], token.Chunks[i]
	}

	return strings.Join(token.Chunks, ""), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
