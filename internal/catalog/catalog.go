// Package catalog holds the approved applications and system actions. Free
// text may only ever select an entry from these tables.
package catalog

import (
	"sort"
	"strings"

	"github.com/Odwa2003/Phone-Controller/internal/models"
)

// appAliases maps spoken names to canonical application IDs.
var appAliases = map[string]string{
	"chrome":             "chrome",
	"google chrome":      "chrome",
	"browser":            "chrome",
	"notepad":            "notepad",
	"text editor":        "notepad",
	"calculator":         "calculator",
	"paint":              "paint",
	"file explorer":      "file_explorer",
	"files":              "file_explorer",
	"word":               "word",
	"excel":              "excel",
	"powerpoint":         "powerpoint",
	"vs code":            "vscode",
	"vscode":             "vscode",
	"visual studio code": "vscode",
	"command prompt":     "terminal",
	"terminal":           "terminal",
	"task manager":       "task_manager",
	"control panel":      "control_panel",
}

// programs maps application IDs to argv per GOOS.
var programs = map[string]map[string][]string{
	"chrome": {
		"windows": {"cmd", "/C", "start", "", "chrome"},
		"darwin":  {"open", "-a", "Google Chrome"},
		"linux":   {"google-chrome"},
	},
	"notepad": {
		"windows": {"notepad"},
		"darwin":  {"open", "-a", "TextEdit"},
		"linux":   {"gedit"},
	},
	"calculator": {
		"windows": {"calc"},
		"darwin":  {"open", "-a", "Calculator"},
		"linux":   {"gnome-calculator"},
	},
	"paint": {
		"windows": {"mspaint"},
		"linux":   {"kolourpaint"},
	},
	"file_explorer": {
		"windows": {"explorer"},
		"darwin":  {"open", "-a", "Finder"},
		"linux":   {"xdg-open", "."},
	},
	"word": {
		"windows": {"cmd", "/C", "start", "", "winword"},
		"darwin":  {"open", "-a", "Microsoft Word"},
		"linux":   {"libreoffice", "--writer"},
	},
	"excel": {
		"windows": {"cmd", "/C", "start", "", "excel"},
		"darwin":  {"open", "-a", "Microsoft Excel"},
		"linux":   {"libreoffice", "--calc"},
	},
	"powerpoint": {
		"windows": {"cmd", "/C", "start", "", "powerpnt"},
		"darwin":  {"open", "-a", "Microsoft PowerPoint"},
		"linux":   {"libreoffice", "--impress"},
	},
	"vscode": {
		"windows": {"cmd", "/C", "code"},
		"darwin":  {"open", "-a", "Visual Studio Code"},
		"linux":   {"code"},
	},
	"terminal": {
		"windows": {"cmd", "/C", "start", "cmd"},
		"darwin":  {"open", "-a", "Terminal"},
		"linux":   {"x-terminal-emulator"},
	},
	"task_manager": {
		"windows": {"taskmgr"},
		"darwin":  {"open", "-a", "Activity Monitor"},
		"linux":   {"gnome-system-monitor"},
	},
	"control_panel": {
		"windows": {"control"},
		"darwin":  {"open", "-b", "com.apple.systempreferences"},
		"linux":   {"gnome-control-center"},
	},
}

// actionAliases maps spoken phrases to system actions.
var actionAliases = map[string]string{
	"lock":      models.ActionLock,
	"sleep":     models.ActionSleep,
	"suspend":   models.ActionSleep,
	"shutdown":  models.ActionShutdown,
	"shut down": models.ActionShutdown,
	"power off": models.ActionShutdown,
	"restart":   models.ActionRestart,
	"reboot":    models.ActionRestart,
}

var actions = map[string]map[string][]string{
	models.ActionLock: {
		"windows": {"rundll32.exe", "user32.dll,LockWorkStation"},
		"darwin":  {"pmset", "displaysleepnow"},
		"linux":   {"loginctl", "lock-session"},
	},
	models.ActionSleep: {
		"windows": {"rundll32.exe", "powrprof.dll,SetSuspendState", "0,1,0"},
		"darwin":  {"pmset", "sleepnow"},
		"linux":   {"systemctl", "suspend"},
	},
	models.ActionShutdown: {
		"windows": {"shutdown", "/s", "/t", "0"},
		"darwin":  {"shutdown", "-h", "now"},
		"linux":   {"systemctl", "poweroff"},
	},
	models.ActionRestart: {
		"windows": {"shutdown", "/r", "/t", "0"},
		"darwin":  {"shutdown", "-r", "now"},
		"linux":   {"systemctl", "reboot"},
	},
}

var urlOpeners = map[string][]string{
	"windows": {"rundll32", "url.dll,FileProtocolHandler"},
	"darwin":  {"open"},
	"linux":   {"xdg-open"},
}

// Entry is one alias from a table, paired with its canonical value.
type Entry struct {
	Alias string
	Value string
}

// Catalog resolves aliases and produces argv for one operating system.
type Catalog struct {
	goos string
}

func New(goos string) *Catalog {
	return &Catalog{goos: goos}
}

// ResolveApp maps an application ID, alias, or this OS's executable name
// to its ID.
func (c *Catalog) ResolveApp(target string) (string, bool) {
	t := normalize(target)
	if _, ok := programs[t]; ok {
		return t, true
	}
	if id, ok := appAliases[t]; ok {
		return id, true
	}
	for id, byOS := range programs {
		if argv := byOS[c.goos]; len(argv) == 1 && strings.EqualFold(argv[0], t) {
			return id, true
		}
	}
	return "", false
}

// AppCommand returns the argv that launches app on this OS.
func (c *Catalog) AppCommand(app string) ([]string, bool) {
	id, ok := c.ResolveApp(app)
	if !ok {
		return nil, false
	}
	argv, ok := programs[id][c.goos]
	return argv, ok
}

// ResolveAction maps an action or alias to a system action.
func (c *Catalog) ResolveAction(action string) (string, bool) {
	a := normalize(action)
	if models.IsSystemAction(a) {
		return a, true
	}
	v, ok := actionAliases[a]
	return v, ok
}

func (c *Catalog) ActionCommand(action string) ([]string, bool) {
	a, ok := c.ResolveAction(action)
	if !ok {
		return nil, false
	}
	argv, ok := actions[a][c.goos]
	return argv, ok
}

// URLCommand returns the argv that opens url in the default browser.
func (c *Catalog) URLCommand(url string) ([]string, bool) {
	opener, ok := urlOpeners[c.goos]
	if !ok {
		return nil, false
	}
	argv := append([]string(nil), opener...)
	return append(argv, url), true
}

// AppIDs returns the canonical application IDs in sorted order.
func (c *Catalog) AppIDs() []string {
	return sortedKeys(programs)
}

func (c *Catalog) Actions() []string {
	return sortedKeys(actions)
}

// AppAliases returns every alias, longest first, so that matching prefers
// "google chrome" over "chrome".
func (c *Catalog) AppAliases() []Entry {
	return byLength(appAliases)
}

func (c *Catalog) ActionAliases() []Entry {
	return byLength(actionAliases)
}

func byLength(m map[string]string) []Entry {
	out := make([]Entry, 0, len(m))
	for alias, v := range m {
		out = append(out, Entry{Alias: alias, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Alias) != len(out[j].Alias) {
			return len(out[i].Alias) > len(out[j].Alias)
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
