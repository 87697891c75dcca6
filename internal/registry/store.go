package registry

import (
	"crypto/ed25519"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// InstallRecord is one row of the install ledger: which plugin, at which
// version and content hash, was registered and when.
type InstallRecord struct {
	Name               string
	Version            string
	SHA256             string
	SignatureVerified  bool
	InstalledAt        time.Time
}

// Store is the sqlite-backed install ledger. It is independent of a running
// Registry's in-memory indexes: it exists to answer "what did we already
// install" across daemon restarts, not to serve transform/lifecycle/registry
// lookups, which stay in memory for the lifetime of the process.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the sqlite install ledger at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("registry: creating ledger directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("registry: opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS installed_plugins (
		name TEXT PRIMARY KEY,
		version TEXT NOT NULL,
		sha256 TEXT NOT NULL,
		signature_verified INTEGER NOT NULL DEFAULT 0,
		installed_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("registry: initializing ledger schema: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordInstall upserts the ledger entry for name.
func (s *Store) RecordInstall(name, version, sha256Hex string, signatureVerified bool, at time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO installed_plugins (name, version, sha256, signature_verified, installed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			sha256 = excluded.sha256,
			signature_verified = excluded.signature_verified,
			installed_at = excluded.installed_at`,
		name, version, sha256Hex, boolToInt(signatureVerified), at.Unix())
	if err != nil {
		return fmt.Errorf("registry: recording install for %q: %w", name, err)
	}
	return nil
}

// IsInstalled reports whether name has a ledger entry.
func (s *Store) IsInstalled(name string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM installed_plugins WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("registry: checking install status for %q: %w", name, err)
	}
	return count > 0, nil
}

// RemoveInstall deletes name's ledger entry, if present.
func (s *Store) RemoveInstall(name string) error {
	_, err := s.db.Exec(`DELETE FROM installed_plugins WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("registry: removing install record for %q: %w", name, err)
	}
	return nil
}

// ListInstalled returns every ledger entry, most-recently-installed first.
func (s *Store) ListInstalled() ([]InstallRecord, error) {
	rows, err := s.db.Query(`
		SELECT name, version, sha256, signature_verified, installed_at
		FROM installed_plugins ORDER BY installed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("registry: listing install ledger: %w", err)
	}
	defer rows.Close()

	var out []InstallRecord
	for rows.Next() {
		var r InstallRecord
		var verified int
		var installedAt int64
		if err := rows.Scan(&r.Name, &r.Version, &r.SHA256, &verified, &installedAt); err != nil {
			return nil, fmt.Errorf("registry: scanning ledger row: %w", err)
		}
		r.SignatureVerified = verified != 0
		r.InstalledAt = time.Unix(installedAt, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// HashWasm returns the lowercase hex SHA-256 digest of wasm, the content
// identity recorded in the ledger.
func HashWasm(wasm []byte) string {
	sum := sha256.Sum256(wasm)
	return hex.EncodeToString(sum[:])
}

// VerifySignature reports whether signatureHex verifies wasm against any key
// in trustedKeys. An empty trustedKeys list always fails closed.
func VerifySignature(wasm []byte, signatureHex string, trustedKeys []ed25519.PublicKey) error {
	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("registry: invalid signature encoding: %w", err)
	}
	for _, key := range trustedKeys {
		if ed25519.Verify(key, wasm, signature) {
			return nil
		}
	}
	return fmt.Errorf("registry: signature not verified by any trusted key")
}
