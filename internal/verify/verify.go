// Package verify checks downloaded release archives against published
// SHA-512 sums and, optionally, OpenPGP detached signatures.
package verify

import (
	"bufio"
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

var (
	// ErrMismatch means the archive does not match its checksum or
	// signature.
	ErrMismatch = errors.New("verification failed")

	// ErrNoChecksum means the sums file has no line for the archive.
	ErrNoChecksum = errors.New("no checksum listed")
)

// Verifier checks archives. The zero value only checks sums.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier loads the keyring at keyringPath. An empty path yields a
// Verifier that does not require signatures.
func NewVerifier(keyringPath string) (*Verifier, error) {
	if keyringPath == "" {
		return &Verifier{}, nil
	}
	keyring, err := LoadKeyring(keyringPath)
	if err != nil {
		return nil, err
	}
	return &Verifier{keyring: keyring}, nil
}

// RequiresSignature reports whether archives must carry a valid signature.
func (v *Verifier) RequiresSignature() bool {
	return len(v.keyring) > 0
}

// Checksum checks the file at path against the entry for name in a
// SHA512-SUMS.txt document.
func (v *Verifier) Checksum(path, name string, sums []byte) error {
	expected, err := findChecksum(sums, name)
	if err != nil {
		return err
	}

	actual, err := calculateSHA512(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}

	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w: checksum mismatch for %s:\nactual:   %s\nexpected: %s",
			ErrMismatch, name, actual, expected)
	}
	return nil
}

// Signature checks a detached signature, armored or binary, over the file
// at path.
func (v *Verifier) Signature(path string, sig []byte) error {
	if !v.RequiresSignature() {
		return errors.New("no keyring configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	if err != nil {
		if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("rewind archive: %w", seekErr)
		}
		_, err = openpgp.CheckDetachedSignature(v.keyring, f, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return fmt.Errorf("%w: signature: %w", ErrMismatch, err)
	}
	return nil
}

// LoadKeyring reads an armored or binary OpenPGP keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

func calculateSHA512(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha512.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// findChecksum finds the checksum for name in a sums document.
// Format: "<hex>  <name>", optionally with a leading "*" for binary mode.
func findChecksum(sums []byte, name string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(sums))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}

		listed := strings.TrimPrefix(parts[1], "*")
		if listed == name || filepath.Base(listed) == name {
			return parts[0], nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read sums: %w", err)
	}
	return "", fmt.Errorf("%w for %s", ErrNoChecksum, name)
}
