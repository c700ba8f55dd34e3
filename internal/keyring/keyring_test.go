package keyring

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestSaveGetDelete(t *testing.T) {
	keyring.MockInit()

	const storeID = "3f1c2b8e-0000-4000-8000-000000000001"

	if HasPassphrase(storeID) {
		t.Fatal("fresh keyring should be empty")
	}

	if err := SavePassphrase(storeID, []byte("s3cret")); err != nil {
		t.Fatalf("SavePassphrase failed: %v", err)
	}
	if !HasPassphrase(storeID) {
		t.Error("passphrase should be present after save")
	}

	got, err := GetPassphrase(storeID)
	if err != nil {
		t.Fatalf("GetPassphrase failed: %v", err)
	}
	if string(got) != "s3cret" {
		t.Errorf("GetPassphrase = %q, want %q", got, "s3cret")
	}

	if _, err := GetPassphrase("other-store"); !IsNotFound(err) {
		t.Errorf("other store should have no entry, got %v", err)
	}

	if err := DeletePassphrase(storeID); err != nil {
		t.Fatalf("DeletePassphrase failed: %v", err)
	}
	if err := DeletePassphrase(storeID); !IsNotFound(err) {
		t.Errorf("second delete should report not found, got %v", err)
	}
}
