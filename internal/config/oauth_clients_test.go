package config

import (
	"testing"
)

func TestParseOAuthClients(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIDs []string
		wantErr bool
	}{
		{
			name:    "flat array",
			input:   `[{"client_id":"a","client_secret":"x"},{"client_id":"b","client_secret":"y"}]`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "single object",
			input:   `{"client_id":"a","client_secret":"x"}`,
			wantIDs: []string{"a"},
		},
		{
			name:    "downloaded web shape",
			input:   `{"web":{"client_id":"w","client_secret":"x","token_uri":"https://oauth2.googleapis.com/token"}}`,
			wantIDs: []string{"w"},
		},
		{
			name:    "array of installed shapes",
			input:   ` [{"installed":{"client_id":"i1","client_secret":"x"}},{"client_id":"f","client_secret":"y"}]`,
			wantIDs: []string{"i1", "f"},
		},
		{name: "empty", input: "  ", wantErr: true},
		{name: "empty array", input: "[]", wantErr: true},
		{name: "missing secret", input: `[{"client_id":"a"}]`, wantErr: true},
		{name: "duplicate id", input: `[{"client_id":"a","client_secret":"x"},{"client_id":"a","client_secret":"y"}]`, wantErr: true},
		{name: "scalar", input: `"a"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOAuthClients(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d clients, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ClientID != id {
					t.Errorf("client[%d].ClientID = %q, want %q", i, got[i].ClientID, id)
				}
				if got[i].ClientSecret.IsEmpty() {
					t.Errorf("client[%d] secret is empty", i)
				}
			}
		})
	}
}

func TestParseOAuthClients_KeepsTokenURI(t *testing.T) {
	got, err := ParseOAuthClients(`{"installed":{"client_id":"i","client_secret":"s","auth_uri":"https://a","token_uri":"https://t"}}`)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].AuthURL != "https://a" || got[0].TokenURL != "https://t" {
		t.Errorf("endpoints not kept: %+v", got[0])
	}
	if got[0].ClientSecret.Unmask() != "s" {
		t.Errorf("secret = %q", got[0].ClientSecret.Unmask())
	}
}
