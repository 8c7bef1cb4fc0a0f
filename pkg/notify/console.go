package notify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned for console input that names no command
var ErrUnknownCommand = errors.New("notify: unrecognised command")

// Cmd identifies a console command
type Cmd int

const (
	CmdClear Cmd = iota
	CmdExit
	CmdHelp
	CmdKey
	CmdRender
	CmdReload

	cmdCount
)

type commandInfo struct {
	name        string
	description string
}

var commands = [cmdCount]commandInfo{
	CmdClear:  {"clear", "clear the notifications"},
	CmdExit:   {"exit", "exit the application"},
	CmdHelp:   {"help", "display this help message"},
	CmdKey:    {"key", "display the keymaps, or press one: key <name>"},
	CmdRender: {"render", "render mode, optional target samples (ESC to go to normal)"},
	CmdReload: {"reload", "reload the shaders"},
}

func (c Cmd) String() string {
	if c < 0 || c >= cmdCount {
		return fmt.Sprintf("Cmd(%d)", int(c))
	}
	return commands[c].name
}

// Keymap is one line of the key help
type Keymap struct {
	Keys   string
	Action string
}

// Keymaps lists the interactive bindings
var Keymaps = []Keymap{
	{"RMB + W/A/S/D/SPACE/SHFT", "Fly mode (camera)"},
	{"MMB", "Orbit mode (camera)"},
	{"MMB + SHFT", "Pan mode (camera)"},
	{"MMB + CTRL", "Dolly mode (camera)"},
	{"SCROLL", "Change FOV"},
	{"R", "Reset render"},
	{"ESC", "Exit render mode / Unselect object"},
}

// Console is the command line under the notification list. Parsed commands
// raise edge-triggered requests that the frame loop polls once per frame.
type Console struct {
	history *History
	out     Sink

	mu           sync.Mutex
	requested    [cmdCount]bool
	renderTarget int
	keys         []string
}

// NewConsole creates a console writing into history; out also receives
// every line (pass Discard for none)
func NewConsole(history *History, out Sink) *Console {
	if out == nil {
		out = Discard
	}
	return &Console{history: history, out: out}
}

// Notify implements Sink so a console can be handed to producers directly
func (c *Console) Notify(t Type, content string) {
	c.history.Notify(t, content)
	c.out.Notify(t, content)
}

// History returns the backing history
func (c *Console) History() *History {
	return c.history
}

// Submit echoes and executes one line of input
func (c *Console) Submit(input string) error {
	input = strings.TrimSpace(input)
	c.Notify(Command, input)

	fields := strings.Fields(input)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := lookup(fields[0])
	if !ok {
		c.Notify(Error, "Unrecognised command")
		return fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	args := fields[1:]

	c.mu.Lock()
	defer c.mu.Unlock()

	switch cmd {
	case CmdClear:
		c.history.Clear()
	case CmdHelp:
		c.pushHelp()
	case CmdKey:
		if len(args) == 0 {
			c.pushKeymaps()
		} else {
			c.keys = append(c.keys, strings.ToLower(args[0]))
		}
	case CmdRender:
		c.renderTarget = 0
		if len(args) > 0 {
			samples, err := strconv.Atoi(args[0])
			if err != nil || samples <= 0 {
				c.Notify(Error, fmt.Sprintf("Invalid sample count %q", args[0]))
				return fmt.Errorf("invalid sample count %q", args[0])
			}
			c.renderTarget = samples
		}
	}
	c.requested[cmd] = true
	return nil
}

func lookup(name string) (Cmd, bool) {
	for i, info := range commands {
		if info.name == name {
			return Cmd(i), true
		}
	}
	return 0, false
}

// Requested reports whether cmd was submitted since the last call, and resets it
func (c *Console) Requested(cmd Cmd) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.requested[cmd] {
		c.requested[cmd] = false
		return true
	}
	return false
}

// RenderTarget is the sample count given to the last render command, 0 for the default
func (c *Console) RenderTarget() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderTarget
}

// TakeKeys returns and clears the keys pressed through the key command
func (c *Console) TakeKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := c.keys
	c.keys = nil
	return keys
}

func (c *Console) pushHelp() {
	c.Notify(Info, "Available commands:")
	for _, info := range commands {
		c.Notify(Other, fmt.Sprintf("- %s: %s", info.name, info.description))
	}
}

func (c *Console) pushKeymaps() {
	c.Notify(Info, "Keymaps:")
	for _, k := range Keymaps {
		c.Notify(Other, fmt.Sprintf("- %s: %s", k.Keys, k.Action))
	}
}
