package app

import "os"

// TestModeEnv is set by internal/testing/testmode so binaries and config
// loading skip side effects under go test.
const TestModeEnv = "HOTEL_TEST_MODE"

// InTestMode reports whether the application should skip runtime side effects.
func InTestMode() bool {
	return os.Getenv(TestModeEnv) == "1"
}
