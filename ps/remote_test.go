package ps

import (
	"reflect"
	"testing"
)

func TestAddAndListRemotes(t *testing.T) {
	persistence := newTestPersistence(t)

	if err := persistence.AddRemote("origin", "https://example.com/data.git"); err != nil {
		t.Fatalf("AddRemote failed: %v", err)
	}
	if err := persistence.AddRemote("origin", "https://example.com/other.git"); err == nil {
		t.Error("Expected error adding a duplicate remote")
	}

	remotes, err := persistence.ListRemotes()
	if err != nil {
		t.Fatalf("ListRemotes failed: %v", err)
	}
	want := []Remote{{Name: "origin", URLs: []string{"https://example.com/data.git"}}}
	if !reflect.DeepEqual(remotes, want) {
		t.Errorf("ListRemotes() = %+v, want %+v", remotes, want)
	}
}

func TestPushUnknownRemote(t *testing.T) {
	persistence, _ := setupBranchTest(t)

	if err := persistence.Push("nowhere", nil); err == nil {
		t.Error("Expected error pushing to an unknown remote")
	}
}

func TestGetAuthMethod(t *testing.T) {
	tests := []struct {
		name    string
		auth    *RemoteAuth
		wantNil bool
		wantErr bool
	}{
		{"nil", nil, true, false},
		{"none", &RemoteAuth{Type: AuthTypeNone}, true, false},
		{"token", &RemoteAuth{Type: AuthTypeToken, Token: "secret"}, false, false},
		{"basic", &RemoteAuth{Type: AuthTypeBasic, Username: "u", Password: "p"}, false, false},
		{"ssh missing key", &RemoteAuth{Type: AuthTypeSSH, KeyPath: "/nonexistent/key"}, false, true},
		{"unknown", &RemoteAuth{Type: "kerberos"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method, err := tt.auth.getAuthMethod()
			if (err != nil) != tt.wantErr {
				t.Fatalf("getAuthMethod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (method == nil) != tt.wantNil {
				t.Errorf("getAuthMethod() = %v, wantNil %v", method, tt.wantNil)
			}
		})
	}
}
