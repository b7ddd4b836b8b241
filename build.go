package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"
)

const OBJ_DIR = "obj"

// defaultRLCache gets env variable RLCACHE.
// If it is not set returns the default value for windows, mac, linux.
func defaultRLCache() string {
	if env := os.Getenv("RLCACHE"); env != "" {
		return env
	}

	homeDir, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LocalAppData"); localAppData != "" {
			return filepath.Join(localAppData, "rill")
		}
		return filepath.Join(homeDir, "AppData", "Local", "rill")

	case "darwin":
		return filepath.Join(homeDir, "Library", "Caches", "rill")

	default: // Linux and others
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "rill")
		}
		return filepath.Join(homeDir, ".cache", "rill")
	}
}

// objectHash hashes the IR plus every setting that affects object
// compilation, so cached objects are reused only when they would be
// byte-identical. Returns the 8-char short hash used as the cache key.
func objectHash(ir string) string {
	h := sha256.New()
	h.Write([]byte(ir))
	h.Write([]byte(Version))
	h.Write([]byte(OPT_LEVEL))
	h.Write([]byte(runtime.GOOS))
	h.Write([]byte(runtime.GOARCH))
	return hex.EncodeToString(h.Sum(nil))[:8]
}

// compileObject produces (or reuses) the cached object file for ir.
// A file lock makes concurrent rill processes see either a fully
// written object or build it themselves.
func compileObject(name, ir string) (string, error) {
	objDir := filepath.Join(defaultRLCache(), OBJ_DIR)
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return "", fmt.Errorf("create object cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(objDir, ".lock"))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("acquire object cache lock: %w", err)
	}
	defer lock.Unlock()

	shortHash := objectHash(ir)
	objFile := filepath.Join(objDir, shortHash+".o")
	if _, err := os.Stat(objFile); err == nil {
		fmt.Printf("Using cached object: %s\n", objFile)
		return objFile, nil
	}

	llFile := filepath.Join(objDir, shortHash+IR_SUFFIX)
	if err := os.WriteFile(llFile, []byte(ir), 0644); err != nil {
		return "", fmt.Errorf("write IR for %s: %w", name, err)
	}

	// Optimization pass
	optFile := filepath.Join(objDir, shortHash+".opt"+IR_SUFFIX)
	optCmd := exec.Command("opt", OPT_LEVEL, "-S", llFile, "-o", optFile)
	if output, err := optCmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("optimization failed: %s\n%s", err, string(output))
	}

	// Compile to object file
	llcCmd := exec.Command("llc", "-filetype=obj", "-relocation-model=pic", optFile, "-o", objFile)
	if output, err := llcCmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("llc compilation failed: %s\n%s", err, string(output))
	}

	return objFile, nil
}

// buildBinary links the (possibly cached) object file into cwd/name.
func buildBinary(name, ir, cwd string) (string, error) {
	objFile, err := compileObject(name, ir)
	if err != nil {
		return "", err
	}

	binFile := filepath.Join(cwd, name)
	linkArgs := []string{"-flto", "-fuse-ld=lld"}

	if runtime.GOOS == "darwin" {
		// Mach-O linker (ld64.lld) wants -dead_strip
		linkArgs = append(linkArgs, "-Wl,-dead_strip")
	} else {
		// ELF linkers (ld, lld) accept --gc-sections
		linkArgs = append(linkArgs, "-Wl,--gc-sections")
	}

	linkArgs = append(linkArgs, objFile, "-o", binFile)

	// Link executable (with dead code elimination)
	clangCmd := exec.Command("clang", linkArgs...)
	if output, err := clangCmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("linking failed: %s\n%s", err, string(output))
	}

	return binFile, nil
}
