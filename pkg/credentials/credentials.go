package credentials

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/benmeehan/fbx-agent/pkg/encryption"
	"github.com/benmeehan/fbx-agent/pkg/file"
)

// ConnectionInfo holds the resolved, versioned HTTPS base path of the appliance.
type ConnectionInfo struct {
	BaseURL    string `json:"baseURL"`
	DeviceName string `json:"device_name,omitempty"`
	UID        string `json:"uid,omitempty"`
	APIVersion string `json:"api_version,omitempty"`
}

// PairingCredential is the artifact of a successful pairing.
type PairingCredential struct {
	AppToken string `json:"app_token"`
	// PasswordSalt is returned by the appliance but not used by the HMAC login.
	PasswordSalt string `json:"password_salt"`
}

// PersistedAuth is the durable record written after pairing and read at startup.
type PersistedAuth struct {
	Infos ConnectionInfo    `json:"infos"`
	Auth  PairingCredential `json:"auth"`
}

// Valid reports whether the record carries everything a login needs.
func (p *PersistedAuth) Valid() bool {
	return p != nil && p.Infos.BaseURL != "" && p.Auth.AppToken != ""
}

// CredentialStoreInterface defines methods for managing the persisted pairing record.
type CredentialStoreInterface interface {
	Load() (*PersistedAuth, bool)
	Save(auth PersistedAuth) error
	Clear() error
}

// CredentialStore owns the on-disk representation of PersistedAuth.
type CredentialStore struct {
	filePath          string
	fileOps           file.FileOperations
	encryptionManager encryption.EncryptionManagerInterface
	logger            zerolog.Logger
}

// NewCredentialStore initializes a new CredentialStore. encryptionManager may be nil,
// in which case the record is stored as plain JSON.
func NewCredentialStore(filePath string, fileOps file.FileOperations,
	encryptionManager encryption.EncryptionManagerInterface, logger zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		filePath:          filePath,
		fileOps:           fileOps,
		encryptionManager: encryptionManager,
		logger:            logger,
	}
}

// Load reads the persisted record. It returns false when the file is missing,
// unreadable, corrupt or incomplete: all of these mean "not yet paired".
func (s *CredentialStore) Load() (*PersistedAuth, bool) {
	exists, err := s.fileOps.IsFileExists(s.filePath)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", s.filePath).Msg("Credential file is not accessible, treating as unpaired")
		return nil, false
	}
	if !exists {
		s.logger.Info().Str("file", s.filePath).Msg("No credential file found")
		return nil, false
	}

	auth, err := s.read()
	if err != nil {
		s.logger.Warn().Err(err).Str("file", s.filePath).Msg("Credential file is corrupt, treating as unpaired")
		return nil, false
	}
	if !auth.Valid() {
		s.logger.Warn().Str("file", s.filePath).Msg("Credential file is incomplete, treating as unpaired")
		return nil, false
	}

	return auth, true
}

// Save atomically writes the record.
func (s *CredentialStore) Save(auth PersistedAuth) error {
	if !auth.Valid() {
		return errors.New("refusing to persist incomplete credentials")
	}

	if s.encryptionManager == nil {
		if err := s.fileOps.WriteJsonFile(s.filePath, auth); err != nil {
			return fmt.Errorf("failed to write credentials: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to serialize credentials: %w", err)
	}
	sealed, err := s.encryptionManager.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt credentials: %w", err)
	}
	if err := s.fileOps.WriteFileRaw(s.filePath, sealed); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Clear removes the persisted record, forcing a fresh pairing on next use.
func (s *CredentialStore) Clear() error {
	if err := s.fileOps.RemoveFile(s.filePath); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	s.logger.Info().Str("file", s.filePath).Msg("Credential file removed")
	return nil
}

func (s *CredentialStore) read() (*PersistedAuth, error) {
	var auth PersistedAuth

	if s.encryptionManager == nil {
		if err := s.fileOps.ReadJsonFile(s.filePath, &auth); err != nil {
			return nil, err
		}
		return &auth, nil
	}

	sealed, err := s.fileOps.ReadFileRaw(s.filePath)
	if err != nil {
		return nil, err
	}
	data, err := s.encryptionManager.Decrypt(sealed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	return &auth, nil
}
