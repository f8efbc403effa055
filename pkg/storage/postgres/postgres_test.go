package postgres_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/turntable/pkg/storage"
	"github.com/papercomputeco/turntable/pkg/storage/postgres"
	testutils "github.com/papercomputeco/turntable/pkg/utils/test"
)

// connStr returns the PostgreSQL connection string from environment or skips the test.
func connStr() string {
	dsn := os.Getenv("TURNTABLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		Skip("TURNTABLE_TEST_POSTGRES_DSN not set, skipping PostgreSQL tests")
	}
	return dsn
}

var _ = Describe("Driver", func() {
	testutils.DescribeDriver(func(ctx context.Context) storage.Driver {
		driver, err := postgres.NewDriver(ctx, connStr())
		Expect(err).NotTo(HaveOccurred())

		// Clean all rows before each test for isolation.
		_, err = driver.DB().ExecContext(ctx, "TRUNCATE chat_rows, conversations")
		Expect(err).NotTo(HaveOccurred())
		return driver
	})
})
