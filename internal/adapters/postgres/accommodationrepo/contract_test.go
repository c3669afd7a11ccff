package accommodationrepo

import (
	"testing"

	"github.com/letsrendez/rendez-api/internal/adapters/contracttest"
	"github.com/letsrendez/rendez-api/internal/adapters/postgres/testutil"
	accommodationrepoport "github.com/letsrendez/rendez-api/internal/ports/out/accommodationrepo"
)

func TestContract_PostgresAccommodationRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunAccommodationRepo(t, func(t *testing.T) (accommodationrepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
