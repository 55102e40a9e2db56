package launcher

import (
	"fmt"
	"strings"
)

// Kind selects how a menu item is carried out.
type Kind string

// Menu item kinds.
const (
	KindApp    Kind = "app"
	KindEditor Kind = "editor"
	KindHome   Kind = "home"
	KindURL    Kind = "url"
)

// Item is one entry of the shortcut menu.
type Item struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Group       string `json:"group,omitempty"`
	Accelerator string `json:"accelerator,omitempty"`
	Kind        Kind   `json:"kind"`
	Target      string `json:"target,omitempty"`
}

func defaultMenu() []Item {
	return []Item{
		{ID: "firefox", Label: "Firefox", Group: "Open Browser", Accelerator: "Command+F", Kind: KindApp, Target: "Firefox"},
		{ID: "librewolf", Label: "Librewolf", Group: "Open Browser", Accelerator: "Command+L", Kind: KindApp, Target: "Librewolf"},
		{ID: "brave", Label: "Brave Browser", Group: "Open Browser", Accelerator: "Command+B", Kind: KindApp, Target: "Brave Browser"},
		{ID: "chrome", Label: "Google Chrome", Group: "Open Browser", Accelerator: "Command+G", Kind: KindApp, Target: "Google Chrome"},
		{ID: "edge", Label: "Microsoft Edge", Group: "Open Browser", Accelerator: "Command+M", Kind: KindApp, Target: "Microsoft Edge"},
		{ID: "vscode", Label: "Open Visual Studio Code", Accelerator: "Command+V", Kind: KindEditor, Target: "Visual Studio Code"},
		{ID: "home", Label: "Open Home Directory", Accelerator: "Command+H", Kind: KindHome},
		{ID: "github", Label: "GitHub", Kind: KindURL, Target: ProjectURL},
	}
}

// command resolves the external command for item on the launcher's OS.
func (l *Launcher) command(item Item) (string, []string, error) {
	if l.goos == "darwin" {
		switch item.Kind {
		case KindApp:
			return "open", []string{"-n", "-a", item.Target}, nil
		case KindEditor:
			return "osascript", []string{
				"-e", fmt.Sprintf("tell application %s to activate", appleString(item.Target)),
				"-e", `tell application "System Events" to keystroke "n" using {shift down, command down}`,
			}, nil
		case KindHome:
			return "osascript", []string{
				"-e", fmt.Sprintf("tell application \"Finder\" to make new Finder window to POSIX file %s", appleString(l.home)),
			}, nil
		case KindURL:
			return "open", []string{item.Target}, nil
		}
		return "", nil, ErrUnsupported
	}

	switch l.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		switch item.Kind {
		case KindHome:
			return "xdg-open", []string{l.home}, nil
		case KindURL:
			return "xdg-open", []string{item.Target}, nil
		}
	}
	return "", nil, ErrUnsupported
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
