package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	credentialDir  = ".bg-studio"
	credentialFile = "credentials.gpg"
	passphraseFile = ".gpg-passphrase"

	// APIKeyEnv is checked before the GPG file.
	APIKeyEnv = "GEMINI_API_KEY"
)

// keySource is one place an API key can come from.
type keySource struct {
	name   string
	lookup func() (string, error)
}

var keySources = []keySource{
	{"environment", fromEnv},
	{"gpg", getFromGPG},
}

// GetAPIKey returns the first non-empty key from GEMINI_API_KEY or
// ~/.bg-studio/credentials.gpg. A missing key is a *ValidationError of
// type ErrTypeNoKey wrapping the last lookup failure.
func GetAPIKey() (string, error) {
	var lastErr error
	for _, src := range keySources {
		key, err := src.lookup()
		if err != nil {
			lastErr = err
			continue
		}
		if key != "" {
			log.Debug().Str("source", src.name).Msg("Using Gemini API key")
			return key, nil
		}
	}

	log.Debug().Err(lastErr).Msg("No API key in environment or GPG file")
	return "", &ValidationError{
		Type:    ErrTypeNoKey,
		Message: "API key not found. Set " + APIKeyEnv + " or store it in ~/" + credentialDir + "/" + credentialFile,
		Err:     lastErr,
	}
}

func fromEnv() (string, error) {
	return strings.TrimSpace(os.Getenv(APIKeyEnv)), nil
}

// getFromGPG decrypts the credentials file with the gpg binary. A passphrase
// file, when present and owner-only, enables loopback pinentry.
func getFromGPG() (string, error) {
	credPath, err := getCredentialPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(credPath); err != nil {
		return "", fmt.Errorf("credentials file %s: %w", credPath, err)
	}

	gpg, err := exec.LookPath("gpg")
	if err != nil {
		return "", fmt.Errorf("gpg not installed: %w", err)
	}

	args := []string{"--decrypt", "--quiet"}
	if pass := findPassphraseFile(); pass != "" {
		args = append(args, "--pinentry-mode", "loopback", "--passphrase-file", pass)
	}
	args = append(args, credPath)

	log.Debug().Str("file", credPath).Msg("Decrypting GPG credentials")
	output, err := exec.Command(gpg, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("gpg decrypt: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gpg decrypt: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func getCredentialPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, credentialDir, credentialFile), nil
}

// findPassphraseFile returns the first usable passphrase file next to the
// executable or in the working directory, or "". Files readable by group or
// others are skipped.
func findPassphraseFile() string {
	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, passphraseFile)
		fi, err := os.Stat(path)
		if err != nil {
			continue
		}
		if perm := fi.Mode().Perm(); perm&0o077 != 0 {
			log.Warn().
				Str("passphrase_file", path).
				Str("permissions", fmt.Sprintf("%04o", perm)).
				Msg("Passphrase file is not owner-only; skipping")
			continue
		}
		return path
	}
	return ""
}
