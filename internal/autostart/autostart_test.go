package autostart

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func testEntry() Entry {
	return Entry{
		Name:        "glucoshare",
		DisplayName: "glucoshare",
		Comment:     "Glucose alerts",
		Command:     "/opt/gluco share/glucoshare",
		Args:        []string{"watch", "--alerts"},
	}
}

func TestCommandLine(t *testing.T) {
	got := testEntry().commandLine()
	want := `"/opt/gluco share/glucoshare" watch --alerts`
	if got != want {
		t.Errorf("commandLine() = %q, want %q", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Entry)
		wantErr bool
	}{
		{"valid", func(*Entry) {}, false},
		{"empty name", func(e *Entry) { e.Name = "" }, true},
		{"path in name", func(e *Entry) { e.Name = "../evil" }, true},
		{"no command", func(e *Entry) { e.Command = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEntry()
			tt.mutate(&e)
			if err := e.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDesktopEntry(t *testing.T) {
	content := desktopEntry(testEntry())

	for _, want := range []string{
		"[Desktop Entry]",
		"Name=glucoshare\n",
		`Exec="/opt/gluco share/glucoshare" watch --alerts` + "\n",
		"Comment=Glucose alerts\n",
		"X-GNOME-Autostart-enabled=true",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("desktop entry missing %q:\n%s", want, content)
		}
	}
}

func TestLaunchAgentPlist(t *testing.T) {
	e := testEntry()
	e.Args = append(e.Args, "--config", "/tmp/a&b.toml")
	content := launchAgentPlist(e)

	for _, want := range []string{
		"<string>com.glucoshare</string>",
		"<string>/opt/gluco share/glucoshare</string>",
		"<string>watch</string>",
		"<string>--alerts</string>",
		"<string>/tmp/a&amp;b.toml</string>",
		"<key>RunAtLoad</key>",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("plist missing %q:\n%s", want, content)
		}
	}
}

func TestEnableDisableLinux(t *testing.T) {
	if runtime.GOOS != osLinux {
		t.Skip("XDG autostart only")
	}

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	e := testEntry()

	enabled, err := IsEnabled(e)
	if err != nil || enabled {
		t.Fatalf("IsEnabled() = %v, %v before Enable", enabled, err)
	}

	if err := Enable(e); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "autostart", "glucoshare.desktop"))
	if err != nil {
		t.Fatalf("reading desktop file: %v", err)
	}
	if string(data) != desktopEntry(e) {
		t.Errorf("desktop file = %q", data)
	}

	if enabled, _ := IsEnabled(e); !enabled {
		t.Error("IsEnabled() = false after Enable")
	}

	if err := Disable(e); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if err := Disable(e); err != nil {
		t.Errorf("second Disable() error = %v", err)
	}
	if enabled, _ := IsEnabled(e); enabled {
		t.Error("IsEnabled() = true after Disable")
	}
}

func TestNewEntry(t *testing.T) {
	e, err := NewEntry("glucoshare", "glucoshare", "alerts", "watch")
	if err != nil {
		t.Fatalf("NewEntry() error = %v", err)
	}
	if !filepath.IsAbs(e.Command) {
		t.Errorf("Command = %q, want absolute path", e.Command)
	}
	if len(e.Args) != 1 || e.Args[0] != "watch" {
		t.Errorf("Args = %v", e.Args)
	}
}
