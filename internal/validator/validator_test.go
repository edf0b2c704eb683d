package validator

import (
	"errors"
	"testing"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{name: "plain hostname", host: "files.example.com"},
		{name: "ip address", host: "192.0.2.10"},
		{name: "empty", host: "", wantErr: true},
		{name: "with scheme", host: "sftp://files.example.com", wantErr: true},
		{name: "with path", host: "files.example.com/upload", wantErr: true},
		{name: "with whitespace", host: "files example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.wantErr != (err != nil) {
				t.Errorf("ValidateHost(%q) = %v, wantErr %v", tt.host, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidHost) {
				t.Errorf("err = %v, want ErrInvalidHost", err)
			}
		})
	}
}

func TestValidatePort(t *testing.T) {
	if err := ValidatePort(22); err != nil {
		t.Errorf("ValidatePort(22) = %v", err)
	}
	for _, port := range []int{0, -1, 65536} {
		if err := ValidatePort(port); !errors.Is(err, ErrInvalidPort) {
			t.Errorf("ValidatePort(%d) = %v, want ErrInvalidPort", port, err)
		}
	}
}

func TestValidateWindow(t *testing.T) {
	tests := []struct {
		name    string
		behind  int
		ahead   int
		wantErr bool
	}{
		{name: "default window", behind: 30, ahead: 30},
		{name: "forward only", behind: 0, ahead: 7},
		{name: "negative behind", behind: -1, ahead: 30, wantErr: true},
		{name: "negative ahead", behind: 30, ahead: -1, wantErr: true},
		{name: "empty window", behind: 0, ahead: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(tt.behind, tt.ahead)
			if tt.wantErr != (err != nil) {
				t.Errorf("ValidateWindow(%d, %d) = %v, wantErr %v", tt.behind, tt.ahead, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTitleLimit(t *testing.T) {
	if err := ValidateTitleLimit(0); err != nil {
		t.Errorf("ValidateTitleLimit(0) = %v, want nil", err)
	}
	if err := ValidateTitleLimit(36); err != nil {
		t.Errorf("ValidateTitleLimit(36) = %v, want nil", err)
	}
	if err := ValidateTitleLimit(-1); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("ValidateTitleLimit(-1) = %v, want ErrInvalidLimit", err)
	}
}

func TestValidateTimezone(t *testing.T) {
	if err := ValidateTimezone("Europe/Berlin"); err != nil {
		t.Errorf("ValidateTimezone(Europe/Berlin) = %v", err)
	}
	if err := ValidateTimezone("Nowhere/Invalid"); !errors.Is(err, ErrUnknownTimezone) {
		t.Errorf("err = %v, want ErrUnknownTimezone", err)
	}
	if err := ValidateTimezone(""); !errors.Is(err, ErrUnknownTimezone) {
		t.Errorf("err = %v, want ErrUnknownTimezone", err)
	}
}
