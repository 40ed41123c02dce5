// Package pathutil normalizes user-supplied image paths. Directories are
// often pasted from a Windows host while the engine runs inside WSL, so
// Windows drive paths are translated to their /mnt mount points before any
// filesystem access.
package pathutil

import (
	"os"
	"path"
	"strings"
	"unicode"
)

// hasDrivePrefix reports whether p starts with a Windows drive specifier
// like "C:\" or "d:/".
func hasDrivePrefix(p string) bool {
	if len(p) < 3 {
		return false
	}
	c := rune(p[0])
	letter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	return letter && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// isUNC reports whether p is a UNC path (\\server\share\...). UNC paths
// have no WSL mount point and pass through unchanged.
func isUNC(p string) bool {
	return strings.HasPrefix(p, `\\`)
}

// WindowsToWSL converts a Windows drive path to its WSL equivalent:
//
//	C:\Users\user\Pictures -> /mnt/c/Users/user/Pictures
//
// Paths that are already absolute POSIX paths, UNC paths, or anything else
// are returned unchanged.
func WindowsToWSL(p string) string {
	if p == "" || strings.HasPrefix(p, "/") || isUNC(p) {
		return p
	}
	if !hasDrivePrefix(p) {
		return p
	}

	drive := unicode.ToLower(rune(p[0]))
	remainder := strings.ReplaceAll(p[3:], `\`, "/")

	return "/mnt/" + string(drive) + "/" + remainder
}

// WSLToWindows converts a WSL mount path back to a Windows drive path:
//
//	/mnt/c/Users/user/Pictures -> C:\Users\user\Pictures
//
// Windows drive paths get their separators unified to backslashes; UNC
// paths and anything outside /mnt/ are returned unchanged.
func WSLToWindows(p string) string {
	if p == "" || isUNC(p) {
		return p
	}
	if hasDrivePrefix(p) {
		return strings.ReplaceAll(p, "/", `\`)
	}
	if len(p) >= 7 && strings.HasPrefix(p, "/mnt/") && p[6] == '/' {
		drive := unicode.ToUpper(rune(p[5]))
		remainder := strings.ReplaceAll(p[7:], "/", `\`)

		return string(drive) + `:\` + remainder
	}

	return p
}

// Normalize converts Windows drive paths to WSL form and cleans the result
// to a canonical forward-slash path.
func Normalize(p string) string {
	converted := strings.ReplaceAll(WindowsToWSL(p), `\`, "/")
	return path.Clean(converted)
}

// Exists reports whether the normalized path exists on disk.
func Exists(p string) bool {
	_, err := os.Stat(Normalize(p))
	return err == nil
}
