package git

import (
	"os"
	"path/filepath"
	"testing"

	"stratum-hq/strata/pkg/config"
)

func TestTokenAuth_GetAuth(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{
			name:  "valid token",
			token: "ghp_validtoken123",
		},
		{
			name:    "empty token",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewTokenAuth(tt.token)

			if auth.Type() != "token" {
				t.Errorf("Type() = %v, want token", auth.Type())
			}

			method, err := auth.GetAuth()
			if (err != nil) != tt.wantErr {
				t.Errorf("GetAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && method == nil {
				t.Error("GetAuth() returned nil method without error")
			}
		})
	}
}

func TestSSHAuth_GetAuth(t *testing.T) {
	tmpDir := t.TempDir()

	validPermsPath := filepath.Join(tmpDir, "key_0600")
	if err := os.WriteFile(validPermsPath, []byte("not a real key"), 0o600); err != nil {
		t.Fatal(err)
	}

	openPermsPath := filepath.Join(tmpDir, "key_0644")
	if err := os.WriteFile(openPermsPath, []byte("not a real key"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		keyPath string
		wantErr bool
	}{
		{
			name:    "empty key path",
			keyPath: "",
			wantErr: true,
		},
		{
			name:    "nonexistent key file",
			keyPath: filepath.Join(tmpDir, "missing"),
			wantErr: true,
		},
		{
			name:    "permissions too open",
			keyPath: openPermsPath,
			wantErr: true,
		},
		{
			// Correct permissions but the content is not a parseable key.
			name:    "unparseable key",
			keyPath: validPermsPath,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewSSHAuth(tt.keyPath, "")

			if auth.Type() != "ssh" {
				t.Errorf("Type() = %v, want ssh", auth.Type())
			}

			_, err := auth.GetAuth()
			if (err != nil) != tt.wantErr {
				t.Errorf("GetAuth() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNoAuth_GetAuth(t *testing.T) {
	auth := NewNoAuth()

	if auth.Type() != "none" {
		t.Errorf("Type() = %v, want none", auth.Type())
	}

	method, err := auth.GetAuth()
	if err != nil {
		t.Errorf("GetAuth() error = %v", err)
	}
	if method != nil {
		t.Errorf("GetAuth() = %v, want nil for public repositories", method)
	}
}

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.GitAuthConfig
		wantType string
		wantErr  bool
	}{
		{
			name:     "token auth",
			cfg:      config.GitAuthConfig{Type: "token", Token: "secret"},
			wantType: "token",
		},
		{
			name:    "token auth without token",
			cfg:     config.GitAuthConfig{Type: "token"},
			wantErr: true,
		},
		{
			name:     "ssh auth",
			cfg:      config.GitAuthConfig{Type: "ssh", SSHKeyPath: "/etc/strata/deploy_key"},
			wantType: "ssh",
		},
		{
			name:    "ssh auth without key path",
			cfg:     config.GitAuthConfig{Type: "ssh"},
			wantErr: true,
		},
		{
			name:     "explicit none",
			cfg:      config.GitAuthConfig{Type: "none"},
			wantType: "none",
		},
		{
			name:     "empty type defaults to none",
			cfg:      config.GitAuthConfig{},
			wantType: "none",
		},
		{
			name:    "unknown type",
			cfg:     config.GitAuthConfig{Type: "kerberos"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if provider.Type() != tt.wantType {
				t.Errorf("Type() = %v, want %v", provider.Type(), tt.wantType)
			}
		})
	}
}
