package cli_test

import (
	"testing"

	"github.com/kopia/streamvault/internal/testlogging"
	"github.com/kopia/streamvault/logging"
)

func testloggingFactory(t *testing.T) logging.LoggerFactory {
	t.Helper()

	return testlogging.PrintfFactory(t.Logf)
}
