package config

import (
	"testing"

	"github.com/gofrs/uuid"
)

func TestCreateUniqueInstance(t *testing.T) {
	id := CreateUniqueInstance("checkin")

	if _, err := uuid.FromString(id); err != nil {
		t.Fatalf("instance id %q is not a uuid: %v", id, err)
	}
	if GetInstanceId() != id {
		t.Fatalf("GetInstanceId() = %q, want %q", GetInstanceId(), id)
	}
}
