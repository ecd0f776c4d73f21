// Package testing switches the process into test mode when imported for side
// effects by test packages.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// liveStoreEnv lists variables that would make a test reach a real store.
var liveStoreEnv = []string{
	"PG_DSN",
	"SUPABASE_URL", "SUPABASE_KEY",
	"VITE_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL",
	"SUPABASE_ANON_KEY", "VITE_SUPABASE_ANON_KEY",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("LABEXPORT_TEST_MODE", "1")
		for _, name := range liveStoreEnv {
			_ = os.Unsetenv(name)
		}
		if os.Getenv("LOGO_PATH") == "" {
			_ = os.Setenv("LOGO_PATH", "testdata/no-logo.png")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
