package hash

import (
	"strings"
	"testing"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "valid password",
			password: "TrackerPass42!",
			wantErr:  false,
		},
		{
			name:     "exactly minimum length",
			password: "eightch8",
			wantErr:  false,
		},
		{
			name:     "one below minimum length",
			password: "seven77",
			wantErr:  true,
		},
		{
			name:     "empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := Hash(tt.password)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if hashed == "" || hashed == tt.password {
				t.Errorf("expected a bcrypt hash, got %q", hashed)
			}
			if !strings.HasPrefix(hashed, "$2a$12$") {
				t.Errorf("expected cost-12 bcrypt prefix, got %q", hashed)
			}
		})
	}
}

func TestHash_NotDeterministic(t *testing.T) {
	// bcrypt salts every hash; two hashes of the same input must differ.
	first, err := Hash("TrackerPass42!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Hash("TrackerPass42!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("expected distinct salted hashes for the same password")
	}
}

func TestCompare(t *testing.T) {
	hashed, err := Hash("TrackerPass42!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := Compare(hashed, "TrackerPass42!"); err != nil {
		t.Errorf("expected match, got %v", err)
	}
	if err := Compare(hashed, "WrongPass42!"); err == nil {
		t.Error("expected mismatch error for the wrong password")
	}
	if err := Compare("not-a-hash", "TrackerPass42!"); err == nil {
		t.Error("expected an error for a malformed hash")
	}
}
