package metadata

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReadFile reads and decodes a metadata file.
func ReadFile(path string) (Fields, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fields, err := Decode(string(raw))
	if err != nil {
		return nil, fmt.Errorf("malformed metadata file %s: %w", path, err)
	}
	return fields, nil
}

// WriteFile encodes fields and writes them to path, creating parent
// directories as needed. When backup is set and the file already
// exists, its previous contents are first copied to a .bak sibling.
// There is no atomic rename; a concurrent reader may observe a partial
// file.
func WriteFile(path string, fields Fields, backup bool) error {
	text, err := Encode(fields)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	if backup {
		if prev, err := os.ReadFile(path); err == nil {
			if err := os.WriteFile(path+".bak", prev, 0644); err != nil {
				return fmt.Errorf("failed to write backup file: %w", err)
			}
		}
	}

	return os.WriteFile(path, []byte(text), 0644)
}
