package attachment

import (
	"regexp"
	"strings"
)

var imageTypes = map[string]struct{}{
	"heic": {}, "jpg": {}, "jpeg": {}, "png": {}, "webp": {}, "gif": {}, "tiff": {}, "bmp": {},
}

// IsImage reports whether ext (without dot, any case) is sent to the image host.
func IsImage(ext string) bool {
	_, ok := imageTypes[strings.ToLower(ext)]
	return ok
}

var nameCleaner = strings.NewReplacer(`"`, "", "<", "", ">", "", `\`, "/")

// SafeName strips quoting and markup characters from a user-supplied file
// name and returns its base name and lowercased extension ("" when none).
// Every path segment is prefixed with a sentinel before the base name is
// taken, so ".png" yields extension "png" rather than a hidden file.
func SafeName(name string) (base, ext string) {
	name = nameCleaner.Replace(name)
	if strings.Contains(name, "/") {
		name = strings.ReplaceAll(name, "/", "/a")
	} else {
		name = "a" + name
	}

	last := name[strings.LastIndex(name, "/")+1:]
	if i := strings.LastIndex(last, "."); i >= 0 {
		ext = strings.ToLower(last[i+1:])
	}
	return last[1:], ext
}

// TypePolicy decides which extensions may be uploaded at all.
type TypePolicy interface {
	Allowed(ext string) bool
}

var (
	extPattern = regexp.MustCompile(`^[_a-z0-9]+$`)

	// executable types are refused whatever the configuration says
	blockedTypes = map[string]struct{}{
		"php": {}, "php3": {}, "php4": {}, "php5": {}, "phtml": {}, "phar": {},
		"asp": {}, "aspx": {}, "jsp": {}, "cgi": {}, "exe": {}, "sh": {},
	}
)

// AllowList is a TypePolicy backed by a fixed set of extensions.
type AllowList map[string]struct{}

// NewAllowList builds an AllowList from extensions in any case.
func NewAllowList(exts []string) AllowList {
	l := make(AllowList, len(exts))
	for _, e := range exts {
		l[strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))] = struct{}{}
	}
	return l
}

// Allowed implements TypePolicy.
func (l AllowList) Allowed(ext string) bool {
	ext = strings.ToLower(ext)
	if !extPattern.MatchString(ext) {
		return false
	}
	if _, blocked := blockedTypes[ext]; blocked {
		return false
	}
	_, ok := l[ext]
	return ok
}
