// Package testing flips the application into test mode before any test
// in the module runs. Tests blank-import it so binaries built from cmd/
// refuse to start runtime side effects under `go test`.
package testing

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GUILDBOARD_TEST_MODE") == "" {
			_ = os.Setenv("GUILDBOARD_TEST_MODE", "1")
		}
	})
}
