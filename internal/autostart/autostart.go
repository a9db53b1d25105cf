// Package autostart registers a command to run at user login across platforms
package autostart

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// OS constants
	osLinux   = "linux"
	osWindows = "windows"
	osDarwin  = "darwin"

	runKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
)

// Entry is a login item
type Entry struct {
	Name        string // Identifier used for file and registry names
	DisplayName string
	Comment     string
	Command     string // Absolute executable path
	Args        []string
}

// NewEntry creates an entry running the current executable with args
func NewEntry(name, displayName, comment string, args ...string) (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("resolve executable: %w", err)
	}
	return Entry{
		Name:        name,
		DisplayName: displayName,
		Comment:     comment,
		Command:     execPath,
		Args:        args,
	}, nil
}

func (e Entry) validate() error {
	if e.Name == "" || strings.ContainsAny(e.Name, `/\ `) {
		return fmt.Errorf("invalid autostart name %q", e.Name)
	}
	if e.Command == "" {
		return errors.New("autostart command is required")
	}
	return nil
}

// commandLine quotes each part that contains whitespace
func (e Entry) commandLine() string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Command}, e.Args...) {
		if strings.ContainsAny(p, " \t") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// IsEnabled checks if the entry is registered
func IsEnabled(e Entry) (bool, error) {
	if err := e.validate(); err != nil {
		return false, err
	}
	switch runtime.GOOS {
	case osLinux:
		return isEnabledLinux(e)
	case osWindows:
		return isEnabledWindows(e)
	case osDarwin:
		return isEnabledMacOS(e)
	default:
		return false, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Enable registers the entry, replacing an existing one
func Enable(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	switch runtime.GOOS {
	case osLinux:
		return enableLinux(e)
	case osWindows:
		return enableWindows(e)
	case osDarwin:
		return enableMacOS(e)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the entry. Removing a missing entry is not an error.
func Disable(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	switch runtime.GOOS {
	case osLinux:
		return disableLinux(e)
	case osWindows:
		return disableWindows(e)
	case osDarwin:
		return disableMacOS(e)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Linux implementation using XDG autostart
func linuxAutostartPath(e Entry) (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "autostart", e.Name+".desktop"), nil
}

func desktopEntry(e Entry) string {
	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=%s
Exec=%s
Comment=%s
Categories=Utility;
Terminal=false
StartupNotify=false
X-GNOME-Autostart-enabled=true
`, e.DisplayName, e.commandLine(), e.Comment)
}

func isEnabledLinux(e Entry) (bool, error) {
	path, err := linuxAutostartPath(e)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	return err == nil, nil
}

func enableLinux(e Entry) error {
	path, err := linuxAutostartPath(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(desktopEntry(e)), 0600)
}

func disableLinux(e Entry) error {
	path, err := linuxAutostartPath(e)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Windows implementation using the registry Run key
func isEnabledWindows(e Entry) (bool, error) {
	cmd := exec.Command("reg", "query", runKey, "/v", e.Name)
	err := cmd.Run()
	return err == nil, nil
}

func enableWindows(e Entry) error {
	//nolint:gosec // G204: the command line is built from os.Executable and fixed args
	cmd := exec.Command("reg", "add", runKey,
		"/v", e.Name,
		"/t", "REG_SZ",
		"/d", e.commandLine(),
		"/f")
	return cmd.Run()
}

func disableWindows(e Entry) error {
	cmd := exec.Command("reg", "delete", runKey, "/v", e.Name, "/f")
	err := cmd.Run()
	if err != nil && strings.Contains(err.Error(), "not exist") {
		return nil
	}
	return err
}

// macOS implementation using LaunchAgents
func macOSLaunchAgentPath(e Entry) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", "com."+e.Name+".plist"), nil
}

func launchAgentPlist(e Entry) string {
	var args strings.Builder
	for _, p := range append([]string{e.Command}, e.Args...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", xmlEscape(p))
	}

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`, e.Name, args.String())
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

func isEnabledMacOS(e Entry) (bool, error) {
	path, err := macOSLaunchAgentPath(e)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	return err == nil, nil
}

func enableMacOS(e Entry) error {
	path, err := macOSLaunchAgentPath(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(launchAgentPlist(e)), 0600)
}

func disableMacOS(e Entry) error {
	path, err := macOSLaunchAgentPath(e)
	if err != nil {
		return err
	}

	// unload first; the agent may not be loaded
	//nolint:gosec // G204: path comes from macOSLaunchAgentPath, not user input
	_ = exec.Command("launchctl", "unload", path).Run()

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
