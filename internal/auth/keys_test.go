package auth

import (
	"errors"
	"testing"

	"github.com/frak/beam/internal/models"
)

func TestCreateKey(t *testing.T) {
	gormDB := openAuthTestDB(t)

	if err := CreateKey(gormDB, "new-access", "new-secret", "frontier_detector"); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	var key models.APIKey
	if err := gormDB.First(&key, "access = ?", "new-access").Error; err != nil {
		t.Fatalf("read key: %v", err)
	}
	if key.Component != "frontier_detector" {
		t.Errorf("component = %q, want frontier_detector", key.Component)
	}
}

func TestCreateKey_DuplicateAccess(t *testing.T) {
	gormDB := openAuthTestDB(t)

	err := CreateKey(gormDB, testAccess, "other-secret", "frontier_detector")
	if !errors.Is(err, ErrDuplicateAccess) {
		t.Fatalf("err = %v, want ErrDuplicateAccess", err)
	}
}

func TestCreateKey_UnknownComponent(t *testing.T) {
	gormDB := openAuthTestDB(t)

	err := CreateKey(gormDB, "new-access", "new-secret", "frontier_ghost")
	if !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("err = %v, want ErrUnknownComponent", err)
	}
}

func TestDeleteKey(t *testing.T) {
	gormDB := openAuthTestDB(t)

	if err := DeleteKey(gormDB, testAccess); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	var count int64
	gormDB.Model(&models.APIKey{}).Count(&count)
	if count != 0 {
		t.Errorf("got %d keys after delete, want 0", count)
	}
	// Deleting a missing key is not an error.
	if err := DeleteKey(gormDB, testAccess); err != nil {
		t.Errorf("second DeleteKey: %v", err)
	}
}

func TestListKeys_OmitsSecrets(t *testing.T) {
	gormDB := openAuthTestDB(t)

	keys, err := ListKeys(gormDB)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d keys, want 1", len(keys))
	}
	key := keys[0]
	if key.Access != testAccess || key.Component != "Frontier detector" || key.Cluster != "Frontier" {
		t.Errorf("listing = %+v, want access with display names", key)
	}
}

func TestLastHeard(t *testing.T) {
	gormDB := openAuthTestDB(t)

	heard, err := LastHeard(gormDB, "frontier_detector")
	if err != nil {
		t.Fatalf("LastHeard: %v", err)
	}
	if heard != nil {
		t.Fatalf("lastheard = %v, want nil before any request", heard)
	}

	ts := int64(1756500000)
	if err := gormDB.Model(&models.APIKey{}).Where("access = ?", testAccess).
		Update("lastused", ts).Error; err != nil {
		t.Fatalf("set lastused: %v", err)
	}
	heard, err = LastHeard(gormDB, "frontier_detector")
	if err != nil {
		t.Fatalf("LastHeard: %v", err)
	}
	if heard == nil || *heard != ts {
		t.Errorf("lastheard = %v, want %d", heard, ts)
	}
}
