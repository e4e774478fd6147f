package retrieve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxSuffix bounds the "name (n).ext" search.
const maxSuffix = 1000

// DirSaver writes files into one directory. Existing files are never replaced; a
// numbered name is picked instead.
type DirSaver struct {
	Dir string

	// link defaults to os.Link.
	link func(oldname, newname string) error
}

// NewDirSaver creates a saver for dir.
func NewDirSaver(dir string) *DirSaver {
	return &DirSaver{Dir: dir}
}

// Save implements Saver.
func (s *DirSaver) Save(name string, body []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".playlistdl-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	link := s.link
	if link == nil {
		link = os.Link
	}
	useLink := true

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxSuffix; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		target := filepath.Join(s.Dir, candidate)

		// Both paths fail if target exists, so a concurrent writer cannot be clobbered.
		if useLink {
			err := link(tmpName, target)
			if err == nil {
				return target, nil
			}
			if errors.Is(err, os.ErrExist) {
				continue
			}
			// No hard links on this filesystem.
			useLink = false
		}

		err := writeExclusive(target, body)
		if err == nil {
			return target, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("no free file name for %q in %s", name, s.Dir)
}

func writeExclusive(target string, body []byte) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(target)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(target)
		return err
	}
	return nil
}
