package config

import (
	"github.com/zalando/go-keyring"

	"snowdash/pkg/errors"
	"snowdash/pkg/models"
)

const (
	keyringService = "snowdash"
	keyringUser    = "snowflake-password"
)

// storePassword moves the plaintext password out of the config that gets
// written to disk. The OS keyring is preferred; when none is available the
// password is kept in the file encrypted with a machine-derived key.
func storePassword(cfg *models.Config) error {
	if cfg.Snowflake.Password == "" || IsEncrypted(cfg.Snowflake.Password) {
		return nil
	}

	if err := keyring.Set(keyringService, keyringUser, cfg.Snowflake.Password); err == nil {
		cfg.Snowflake.Password = ""
		return nil
	}

	encrypted, err := EncryptPassword(cfg.Snowflake.Password)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to protect stored password")
	}
	cfg.Snowflake.Password = encrypted
	return nil
}

// resolvePassword restores the plaintext password for a loaded config,
// trying the encrypted file value first, then the keyring.
func resolvePassword(cfg *models.Config) error {
	if IsEncrypted(cfg.Snowflake.Password) {
		decrypted, err := DecryptPassword(cfg.Snowflake.Password)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to decrypt stored password").
				WithSuggestions("Run 'snowdash setup' to re-enter credentials")
		}
		cfg.Snowflake.Password = decrypted
		return nil
	}

	if cfg.Snowflake.Password != "" {
		return nil
	}

	stored, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		// No keyring entry is fine; the session layer reports the missing
		// password with its own validation error.
		return nil
	}
	cfg.Snowflake.Password = stored
	return nil
}

// DeleteStoredPassword removes the keyring entry, if any
func DeleteStoredPassword() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err == keyring.ErrNotFound {
		return nil
	}
	return err
}
