package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// appFS backs every file the commands read or write. Tests swap in a MemMapFs.
var appFS afero.Fs = afero.NewOsFs()

// nopCloser is returned by openOutput for stdout.
func nopCloser() error { return nil }

// openOutput resolves the writer for -o: stdout when path is empty, otherwise
// a file on appFS that the caller must close.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, nopCloser, nil
	}
	f, err := appFS.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %q: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("writing to file")
	return f, f.Close, nil
}
