package textfix

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// NormalizeFile rewrites path as UTF-8 when it is in another encoding. It
// reports whether the file was rewritten.
func NormalizeFile(path string) (bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if utf8.Valid(raw) {
		return false, nil
	}

	best, err := chardet.NewTextDetector().DetectBest(raw)
	if err != nil {
		return false, fmt.Errorf("detecting encoding of %s: %w", path, err)
	}
	converted, err := convert(raw, best.Charset)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, converted, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// convert decodes raw from charset into UTF-8. Undecodable bytes become the
// replacement character.
func convert(raw []byte, charset string) ([]byte, error) {
	enc, err := lookup(charset)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", charset, err)
	}
	return out, nil
}

func lookup(charset string) (encoding.Encoding, error) {
	name := strings.ToLower(charset)
	if name == "gb-18030" {
		name = "gb18030"
	}
	if enc, err := htmlindex.Get(name); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	return enc, nil
}
