package accommodationrepo

import (
	"testing"

	"github.com/letsrendez/rendez-api/internal/adapters/contracttest"
	accommodationrepoport "github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
)

func TestContract_AccommodationRepo(t *testing.T) {
	contracttest.RunAccommodationRepo(t, func(t *testing.T) (accommodationrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(), nil
	})
}
