package loop

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Archive copies every path in sources into OutputDir/label, creating the
// directory as needed, and returns the directory. Missing sources are logged and
// skipped. Sources sharing a base name are kept apart with a numeric prefix. Any
// other copy failure is an ErrIO and removes the archive directory.
func (e *Engine) Archive(sources []string, label string) (string, error) {
	dir := filepath.Join(e.Params.OutputDir, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ioError(err, "create archive %s", dir)
	}
	used := make(map[string]bool, len(sources))
	for _, src := range sources {
		if _, err := os.Stat(src); os.IsNotExist(err) {
			e.log().WithFields(logrus.Fields{
				"function": "Engine.Archive",
				"path":     src,
			}).Warn("Archive source does not exist, skipping")
			continue
		}
		name := archiveName(filepath.Base(src), used)
		if name != filepath.Base(src) {
			e.log().WithFields(logrus.Fields{
				"function": "Engine.Archive",
				"path":     src,
				"name":     name,
			}).Warn("Archive name already taken, renaming")
		}
		if err := copyFile(src, filepath.Join(dir, name)); err != nil {
			os.RemoveAll(dir)
			return "", ioError(err, "archive %s", src)
		}
	}
	e.log().WithFields(logrus.Fields{
		"function": "Engine.Archive",
		"dir":      dir,
		"files":    len(sources),
	}).Debug("Archived sources")
	return dir, nil
}

func archiveName(base string, used map[string]bool) string {
	name := base
	for n := 1; used[name]; n++ {
		name = fmt.Sprintf("%d_%s", n, base)
	}
	used[name] = true
	return name
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
