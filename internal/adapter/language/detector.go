// Package language detects the dominant programming language of a
// workspace so the tokenizer and the language-server bridge can be
// chosen without explicit configuration.
package language

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// sampleLimit caps how much of each file is read for classification.
// Language signals live in the head of a file.
const sampleLimit = 16 * 1024

// Detector ranks the languages of a workspace by classified byte share.
type Detector struct {
	// Override short-circuits detection when the language is configured
	// explicitly.
	Override string
}

// Detect walks root and returns the dominant language in lowercase
// ("python", "go"). It returns the empty string when nothing in the
// tree classifies.
func (d *Detector) Detect(root string) (string, error) {
	if d.Override != "" {
		return strings.ToLower(d.Override), nil
	}

	byteShare := map[string]int64{}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if entry.IsDir() {
			if entry.Name() == ".git" || enry.IsVendor(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if enry.IsVendor(rel) || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		sample, readErr := readSample(path)
		if readErr != nil {
			return nil
		}
		if enry.IsBinary(sample) {
			return nil
		}

		lang := enry.GetLanguage(entry.Name(), sample)
		if lang == "" || lang == enry.OtherLanguage {
			return nil
		}
		byteShare[strings.ToLower(lang)] += info.Size()
		return nil
	})
	if err != nil {
		return "", err
	}

	top := ""
	var topBytes int64
	for lang, size := range byteShare {
		if size > topBytes || (size == topBytes && lang < top) {
			top = lang
			topBytes = size
		}
	}
	return top, nil
}

func readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sample := make([]byte, sampleLimit)
	n, err := io.ReadFull(f, sample)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return sample[:n], nil
}
