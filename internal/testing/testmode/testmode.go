// Package testmode marks the process as a test run when blank-imported,
// so config loading falls back to test secrets and binaries skip startup.
package testmode

import "os"

// Env is the variable read by app.InTestMode.
const Env = "HOTEL_TEST_MODE"

func init() {
	_ = os.Setenv(Env, "1")
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "error")
	}
}
