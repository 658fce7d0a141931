package service

import (
	"fmt"
	"io"
	"os"

	"github.com/stevelr/kv-assets/internal/assets"
)

// Dump decodes the index artifact at path and writes its human-readable
// form to w. A decode failure is returned as-is so the CLI can exit
// non-zero with the typed error's message.
func Dump(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read artifact '%s' for dump: %w", path, err)
	}
	index, err := assets.Decode(data)
	if err != nil {
		return err
	}
	text, err := assets.Display(index)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
