package resultindex

import (
	"os"
	"path/filepath"
)

func filepathGlobJSON(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.json"))
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
