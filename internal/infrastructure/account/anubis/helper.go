package anubis

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/peg-league/internal/platform/logging"
	"github.com/riskibarqy/peg-league/internal/platform/resilience"
)

// isCircuitFailure counts only outages. A rejected token is a healthy answer.
func isCircuitFailure(err error) bool {
	return crerr.Is(err, errAnubisTransient)
}

func logBreakerChange(logger *logging.Logger) resilience.StateChangeFunc {
	return func(name string, from, to resilience.CircuitState) {
		logger.Warn("circuit breaker state changed", "breaker", name, "from", string(from), "to", string(to))
	}
}

// hashToken keys the principal cache so raw tokens are never held.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// buildURL joins base and path. An absolute path wins over base.
func buildURL(baseURL, path string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return base
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	default:
		return base + "/" + strings.TrimLeft(path, "/")
	}
}
