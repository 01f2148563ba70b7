package profiles_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	prof "github.com/co2meal/stratum/cmd/stratum/config/profiles"
	"github.com/co2meal/stratum/pkg/dataset/remote"
	"github.com/co2meal/stratum/pkg/utils/try"
)

func TestConfig(t *testing.T) {
	t.Run("unmarshalling works well", func(t *testing.T) {
		conf, err := prof.Unmarshall([]byte(`
profname:
    apiRoot: "https://api.example.com"
    apiKey: "SECRET"
`))
		if err != nil {
			t.Fatalf("failed to unmarshal.: %+v", err)
		}
		p, ok := conf["profname"]
		if !ok {
			t.Fatal("config has not profile")
		}

		expectedApiRoot := "https://api.example.com"
		if p.ApiRoot != expectedApiRoot {
			t.Errorf("prof.ApiRoot unmatch. (actual, expected) = (%s, %s)", p.ApiRoot, expectedApiRoot)
		}

		expectedApiKey := "SECRET"
		if p.ApiKey != expectedApiKey {
			t.Errorf("prof.ApiKey unmatch. (actual, expected) = (%s, %s)", p.ApiKey, expectedApiKey)
		}
	})
}

func TestProfileStore(t *testing.T) {
	t.Run("saving and loading round-trips", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conf", "profile")
		store := prof.ProfileStore{
			"default": &remote.Profile{ApiRoot: "https://api.example.com", ApiKey: "k1"},
			"staging": &remote.Profile{ApiRoot: "https://staging.example.com"},
		}

		if err := store.Save(path); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		if s := try.To(os.Stat(path)).OrFatal(t); s.Mode().Perm() != 0600 {
			t.Errorf("profile store should be private: %v", s.Mode())
		}
		if _, err := os.Stat(path + ".backup"); !os.IsNotExist(err) {
			t.Errorf("backup file should be removed after saving: %v", err)
		}

		loaded := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		if len(loaded) != 2 {
			t.Fatalf("unexpected store content: %+v", loaded)
		}
		if p := loaded["default"]; p == nil || p.ApiRoot != "https://api.example.com" || p.ApiKey != "k1" {
			t.Errorf("unexpected profile: %+v", p)
		}
		if p := loaded["staging"]; p == nil || p.ApiKey != "" {
			t.Errorf("unexpected profile: %+v", p)
		}
	})

	t.Run("loading a missing store is ErrProfileStoreNotFound", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "no", "such", "file")
		if _, err := prof.LoadProfileStore(path); !errors.Is(err, prof.ErrProfileStoreNotFound) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("saving over an existing store keeps other profiles intact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile")
		first := prof.ProfileStore{
			"default": &remote.Profile{ApiRoot: "https://api.example.com"},
		}
		if err := first.Save(path); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		second := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		second["extra"] = &remote.Profile{ApiRoot: "https://extra.example.com"}
		if err := second.Save(path); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded := try.To(prof.LoadProfileStore(path)).OrFatal(t)
		if loaded["default"] == nil || loaded["extra"] == nil {
			t.Errorf("unexpected store content: %+v", loaded)
		}
	})
}
