package crypto

import (
	"encoding/hex"
	"sync"
	"testing"
)

func TestHashToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "jwt shaped", token: "eyJhbGciOiJIUzI1NiJ9.eyJ1aWQiOiJ1c2VyLTEifQ.sig"},
		{name: "short", token: "a"},
		{name: "empty", token: ""},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			hash := HashToken(test.token)

			// Assert
			if len(hash) != 64 {
				t.Errorf("HashToken() length = %d, want 64", len(hash))
			}
			if _, err := hex.DecodeString(hash); err != nil {
				t.Errorf("HashToken() is not hex: %v", err)
			}
			if hash == test.token {
				t.Error("HashToken() returned the raw token")
			}
			if HashToken(test.token) != hash {
				t.Error("HashToken() should be deterministic")
			}
		})
	}
}

func TestVerifyToken(t *testing.T) {
	stored := HashToken("session-token")

	tests := []struct {
		name    string
		token   string
		hash    string
		wantOk  bool
		wantErr error
	}{
		{name: "matching token", token: "session-token", hash: stored, wantOk: true},
		{name: "different token", token: "other-token", hash: stored, wantOk: false},
		{name: "hash of hash", token: stored, hash: stored, wantOk: false},
		{name: "empty token", token: "", hash: stored, wantErr: ErrEmptyToken},
		{name: "empty hash", token: "session-token", hash: "", wantErr: ErrEmptyToken},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			ok, err := VerifyToken(test.token, test.hash)

			// Assert
			if err != test.wantErr {
				t.Fatalf("VerifyToken() error = %v, want %v", err, test.wantErr)
			}
			if ok != test.wantOk {
				t.Errorf("VerifyToken() = %v, want %v", ok, test.wantOk)
			}
		})
	}
}

func TestHashToken_Concurrent(t *testing.T) {
	// Arrange
	var wg sync.WaitGroup
	want := HashToken("shared")
	errs := make(chan string, 50)

	// Act
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := HashToken("shared"); got != want {
				errs <- got
			}
		}()
	}
	wg.Wait()
	close(errs)

	// Assert
	for got := range errs {
		t.Errorf("HashToken() = %q, want %q", got, want)
	}
}
