package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// AppEnv returns APP_ENV, "dev" when unset.
func AppEnv() string {
	if v := os.Getenv("APP_ENV"); v != "" {
		return v
	}
	return "dev"
}

// LoadDotenv loads .env from dir, then .env.$APP_ENV over it. Files that
// don't exist are skipped. It returns the files that were applied.
func LoadDotenv(dir string) ([]string, error) {
	var loaded []string

	base := dir + "/.env"
	if err := godotenv.Load(base); err == nil {
		loaded = append(loaded, base)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return loaded, fmt.Errorf("load %s: %w", base, err)
	}

	overlay := fmt.Sprintf("%s/.env.%s", dir, AppEnv())
	if err := godotenv.Overload(overlay); err == nil {
		loaded = append(loaded, overlay)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return loaded, fmt.Errorf("load %s: %w", overlay, err)
	}

	return loaded, nil
}
