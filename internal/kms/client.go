// Package kms integrates with the external key-management service (HashiCorp
// Vault). Private signing key material never resides in this process: the
// package maintains the service's own Vault session, caches transit public
// keys for verification, and delegates signing to the transit engine.
package kms

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	vault "github.com/hashicorp/vault/api"

	apperrors "github.com/allisson/authd/internal/errors"
)

// Session holds the service's Vault session state. The client token must never
// be logged or exposed outside this package.
type Session struct {
	ClientToken   string
	LeaseDuration time.Duration
	Renewable     bool
}

// KeyInfo describes a single transit key version as reported by the KMS.
type KeyInfo struct {
	PublicKeyBase64 string
	CreationTime    time.Time
}

// KeyMetadata is the transit key metadata used to drive the rotation-aware
// refresh schedule.
type KeyMetadata struct {
	LatestVersion        int
	MinDecryptionVersion int
	AutoRotatePeriod     time.Duration
	Keys                 map[int]KeyInfo
}

// Client is the narrow surface of the KMS consumed by this service. It exists
// so the session manager and key cache can be tested against a fake KMS.
type Client interface {
	// AppRoleLogin exchanges the startup role/secret credentials for a session.
	AppRoleLogin(ctx context.Context) (Session, error)

	// RenewSelf renews the current session using its own token.
	RenewSelf(ctx context.Context) (Session, error)

	// SetToken installs the session token used by subsequent calls.
	SetToken(token string)

	// ReadKey fetches transit key metadata for the named signing key.
	ReadKey(ctx context.Context, name string) (KeyMetadata, error)

	// Sign asks the transit engine to sign base64-encoded input with the given
	// key version. Returns the namespaced signature string ("vault:vN:<b64>").
	Sign(ctx context.Context, name string, inputBase64 string, keyVersion int) (string, error)
}

// Config holds the settings for the Vault-backed client.
type Config struct {
	Address  string
	RoleID   string
	SecretID string
	Timeout  time.Duration
}

// vaultClient implements Client using the official Vault API client.
type vaultClient struct {
	api      *vault.Client
	roleID   string
	secretID string
	timeout  time.Duration
}

// NewClient creates a Vault-backed KMS client. Every call carries a bounded
// timeout so a slow KMS can never stall request processing indefinitely.
func NewClient(cfg Config) (Client, error) {
	apiConfig := vault.DefaultConfig()
	apiConfig.Address = cfg.Address
	apiConfig.Timeout = cfg.Timeout

	api, err := vault.NewClient(apiConfig)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create vault client")
	}

	return &vaultClient{
		api:      api,
		roleID:   cfg.RoleID,
		secretID: cfg.SecretID,
		timeout:  cfg.Timeout,
	}, nil
}

// AppRoleLogin exchanges the role/secret credentials for a session token.
func (c *vaultClient) AppRoleLogin(ctx context.Context) (Session, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	secret, err := c.api.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
		"role_id":   c.roleID,
		"secret_id": c.secretID,
	})
	if err != nil {
		return Session{}, apperrors.Wrap(err, "approle login failed")
	}
	if secret == nil || secret.Auth == nil {
		return Session{}, apperrors.Wrap(apperrors.ErrInternal, "approle login response missing auth data")
	}

	return Session{
		ClientToken:   secret.Auth.ClientToken,
		LeaseDuration: time.Duration(secret.Auth.LeaseDuration) * time.Second,
		Renewable:     secret.Auth.Renewable,
	}, nil
}

// RenewSelf renews the session represented by the currently installed token.
func (c *vaultClient) RenewSelf(ctx context.Context) (Session, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	secret, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
	if err != nil {
		return Session{}, apperrors.Wrap(err, "token renewal failed")
	}
	if secret == nil || secret.Auth == nil {
		return Session{}, apperrors.Wrap(apperrors.ErrInternal, "renewal response missing auth data")
	}

	return Session{
		ClientToken:   secret.Auth.ClientToken,
		LeaseDuration: time.Duration(secret.Auth.LeaseDuration) * time.Second,
		Renewable:     secret.Auth.Renewable,
	}, nil
}

// SetToken installs the session token on the underlying API client.
func (c *vaultClient) SetToken(token string) {
	c.api.SetToken(token)
}

// ReadKey fetches and parses transit key metadata.
func (c *vaultClient) ReadKey(ctx context.Context, name string) (KeyMetadata, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	secret, err := c.api.Logical().ReadWithContext(ctx, "transit/keys/"+name)
	if err != nil {
		return KeyMetadata{}, apperrors.Wrap(err, "failed to read transit key metadata")
	}
	if secret == nil || secret.Data == nil {
		return KeyMetadata{}, apperrors.Wrap(apperrors.ErrInternal, "transit key metadata response is empty")
	}

	return parseKeyMetadata(secret.Data)
}

// Sign signs base64-encoded input using the transit engine.
func (c *vaultClient) Sign(ctx context.Context, name string, inputBase64 string, keyVersion int) (string, error) {
	ctx, cancel := c.boundedContext(ctx)
	defer cancel()

	secret, err := c.api.Logical().WriteWithContext(ctx, "transit/sign/"+name, map[string]interface{}{
		"input":       inputBase64,
		"key_version": keyVersion,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "transit signing failed")
	}
	if secret == nil || secret.Data == nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "transit signing response is empty")
	}

	signature, ok := secret.Data["signature"].(string)
	if !ok || signature == "" {
		return "", apperrors.Wrap(apperrors.ErrInternal, "transit signing response missing signature")
	}

	return signature, nil
}

// boundedContext applies the configured timeout on top of the caller's context.
func (c *vaultClient) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// parseKeyMetadata converts the raw transit key read response into KeyMetadata.
func parseKeyMetadata(data map[string]interface{}) (KeyMetadata, error) {
	latest, err := parseIntField(data, "latest_version")
	if err != nil {
		return KeyMetadata{}, err
	}

	minDecryption, err := parseIntField(data, "min_decryption_version")
	if err != nil {
		return KeyMetadata{}, err
	}

	autoRotate, err := parseIntField(data, "auto_rotate_period")
	if err != nil {
		return KeyMetadata{}, err
	}

	rawKeys, ok := data["keys"].(map[string]interface{})
	if !ok {
		return KeyMetadata{}, apperrors.Wrap(apperrors.ErrInternal, "transit key metadata missing keys")
	}

	keys := make(map[int]KeyInfo, len(rawKeys))
	for versionStr, rawKey := range rawKeys {
		version, err := strconv.Atoi(versionStr)
		if err != nil {
			return KeyMetadata{}, apperrors.Wrap(err, "invalid key version in transit metadata")
		}

		keyData, ok := rawKey.(map[string]interface{})
		if !ok {
			return KeyMetadata{}, apperrors.Wrap(apperrors.ErrInternal, "unexpected key entry shape in transit metadata")
		}

		publicKey, _ := keyData["public_key"].(string)
		creationStr, _ := keyData["creation_time"].(string)

		creationTime, err := time.Parse(time.RFC3339, creationStr)
		if err != nil {
			return KeyMetadata{}, apperrors.Wrap(err, "invalid creation_time in transit metadata")
		}

		keys[version] = KeyInfo{
			PublicKeyBase64: publicKey,
			CreationTime:    creationTime.UTC(),
		}
	}

	return KeyMetadata{
		LatestVersion:        latest,
		MinDecryptionVersion: minDecryption,
		AutoRotatePeriod:     time.Duration(autoRotate) * time.Second,
		Keys:                 keys,
	}, nil
}

// parseIntField reads an integer field that the Vault API decodes as json.Number.
func parseIntField(data map[string]interface{}, field string) (int, error) {
	raw, ok := data[field]
	if !ok {
		return 0, apperrors.Wrap(apperrors.ErrInternal, fmt.Sprintf("transit key metadata missing %s", field))
	}

	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, apperrors.Wrap(err, fmt.Sprintf("invalid %s in transit metadata", field))
		}
		return int(n), nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, apperrors.Wrap(apperrors.ErrInternal, fmt.Sprintf("unexpected type for %s in transit metadata", field))
	}
}
