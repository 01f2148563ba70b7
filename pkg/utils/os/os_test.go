package os_test

import (
	"testing"

	kos "github.com/co2meal/stratum/pkg/utils/os"
)

func TestGetEnvOr(t *testing.T) {
	t.Run("it returns value of set variable", func(t *testing.T) {
		t.Setenv("STRATUM_TEST_VAR", "value")
		if actual := kos.GetEnvOr("STRATUM_TEST_VAR", "fallback"); actual != "value" {
			t.Errorf("unexpected value: %s", actual)
		}
	})
	t.Run("it falls back for unset variable", func(t *testing.T) {
		if actual := kos.GetEnvOr("STRATUM_TEST_UNSET_VAR", "fallback"); actual != "fallback" {
			t.Errorf("unexpected value: %s", actual)
		}
	})
}
