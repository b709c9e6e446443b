// Package interactive provides the interactive command-line shell
// for viable-cli.
package interactive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/viable-protocol/viable-go/pkg/client"
	"github.com/viable-protocol/viable-go/pkg/fragment"
	"github.com/viable-protocol/viable-go/pkg/keymap"
	"github.com/viable-protocol/viable-go/pkg/wire"
)

// Shell handles interactive mode for viable-cli.
type Shell struct {
	c  *client.Client
	rl *readline.Instance
}

// New creates a new interactive shell around a connected client.
func New(c *client.Client) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "viable> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{c: c, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "info", "i":
			s.cmdInfo(ctx)

		case "definition", "def":
			s.cmdDefinition(ctx)

		case "td", "tapdance":
			s.cmdTapDance(ctx, args)

		case "combo":
			s.cmdCombo(ctx, args)

		case "ko", "override":
			s.cmdKeyOverride(ctx, args)

		case "ark", "altrepeat":
			s.cmdAltRepeatKey(ctx, args)

		case "leader":
			s.cmdLeader(ctx, args)

		case "oneshot", "os":
			s.cmdOneShot(ctx, args)

		case "layers":
			s.cmdLayers(ctx, args)

		case "fragments", "frag":
			s.cmdFragments(ctx)

		case "select":
			s.cmdSelect(ctx, args)

		case "save":
			s.cmdSave(ctx)

		case "reset":
			s.cmdReset(ctx)

		case "layout":
			s.cmdLayout(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
Viable Keyboard Commands:
  Inspection:
    info                - Protocol version, UID, capabilities, slot counts
    definition          - Keyboard definition summary

  Feature Tables (td, combo, ko, ark, leader):
    <table> list        - List all entries
    <table> get <i>     - Show one entry
    <table> set <i> ..  - Write an entry (fields in table order, 0x.. accepted)
    <table> on <i>      - Enable an entry
    <table> off <i>     - Disable an entry

    td set <i> <tap> <hold> <double> <taphold> <term>
    combo set <i> <k1> <k2> <k3> <k4> <out> <term>
    ko set <i> <trig> <repl> <layers> <tmods> <negmask> <supmods> <opts>
    ark set <i> <kc> <alt> <mods> <opts>
    leader set <i> <s1> <s2> <s3> <s4> <s5> <out>

  Device State:
    oneshot [<timeout> <taptoggle>] - Show or set one-shot config
    layers [<n>...]     - Show or set active layers
    fragments           - Show fragment instances and their resolution
    select <pos> <opt>  - Store a fragment selection in EEPROM
    save                - Commit dynamic state to EEPROM
    reset               - Reset dynamic features to defaults

  Layout Files:
    layout save <file>  - Snapshot the keyboard to a .viable file
    layout load <file>  - Restore a .viable file onto the keyboard

  General:
    help                - Show this help
    quit                - Exit`)
}

func (s *Shell) cmdInfo(ctx context.Context) {
	out := s.rl.Stdout()
	info := s.c.Info()
	fmt.Fprintf(out, "Protocol version: %d\n", info.Version)
	fmt.Fprintf(out, "Keyboard UID:     %s\n", s.c.UID())
	fmt.Fprintf(out, "Capabilities:     %s\n", strings.Join(s.c.Capabilities(), ", "))

	type table struct {
		name  string
		slots func(context.Context) (int, error)
	}
	tables := []table{
		{"tap_dance", func(ctx context.Context) (int, error) {
			r, err := s.c.TapDances(ctx)
			if err != nil {
				return 0, err
			}
			return r.Slots(), nil
		}},
		{"combo", func(ctx context.Context) (int, error) {
			r, err := s.c.Combos(ctx)
			if err != nil {
				return 0, err
			}
			return r.Slots(), nil
		}},
		{"key_override", func(ctx context.Context) (int, error) {
			r, err := s.c.KeyOverrides(ctx)
			if err != nil {
				return 0, err
			}
			return r.Slots(), nil
		}},
		{"alt_repeat_key", func(ctx context.Context) (int, error) {
			r, err := s.c.AltRepeatKeys(ctx)
			if err != nil {
				return 0, err
			}
			return r.Slots(), nil
		}},
		{"leader", func(ctx context.Context) (int, error) {
			r, err := s.c.Leaders(ctx)
			if err != nil {
				return 0, err
			}
			return r.Slots(), nil
		}},
	}
	for _, tbl := range tables {
		n, err := tbl.slots(ctx)
		if err != nil {
			fmt.Fprintf(out, "  %-16s error: %v\n", tbl.name, err)
			continue
		}
		fmt.Fprintf(out, "  %-16s %d slots\n", tbl.name, n)
	}
}

func (s *Shell) cmdDefinition(ctx context.Context) {
	out := s.rl.Stdout()
	doc, err := s.c.Definition(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "Name: %s\n", doc.Name)
	fmt.Fprintf(out, "Counts: tap_dance=%d combo=%d key_override=%d alt_repeat_key=%d leader=%d\n",
		doc.Viable.TapDance, doc.Viable.Combo, doc.Viable.KeyOverride,
		doc.Viable.AltRepeatKey, doc.Viable.Leader)

	if !doc.HasFragments() {
		fmt.Fprintln(out, "No fragments.")
		return
	}

	names := make([]string, 0, len(doc.Fragments))
	for name := range doc.Fragments {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "Fragments:")
	for _, name := range names {
		f := doc.Fragments[name]
		fmt.Fprintf(out, "  [%d] %-16s %s\n", f.ID, name, f.Description)
	}

	fmt.Fprintln(out, "Instances:")
	for i, inst := range doc.Composition.Instances {
		opts := make([]string, len(inst.FragmentOptions))
		for j, o := range inst.FragmentOptions {
			opts[j] = o.Fragment
		}
		override := ""
		if !inst.Overridable() {
			override = " (override forbidden)"
		}
		fmt.Fprintf(out, "  %d: %-16s options: %s%s\n", i, inst.ID, strings.Join(opts, ", "), override)
	}
}

func (s *Shell) cmdOneShot(ctx context.Context, args []string) {
	out := s.rl.Stdout()
	osc := s.c.OneShot()

	if len(args) == 0 {
		cfg, err := osc.Get(ctx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "timeout=%dms tap_toggle=%d\n", cfg.Timeout, cfg.TapToggle)
		return
	}

	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: oneshot [<timeout-ms> <tap-toggle>]")
		return
	}
	vals, err := parseUints(args, 16)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	cfg := wire.OneShotConfig{Timeout: uint16(vals[0]), TapToggle: uint8(vals[1])}
	if err := osc.Set(ctx, cfg); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func (s *Shell) cmdLayers(ctx context.Context, args []string) {
	out := s.rl.Stdout()

	if len(args) == 0 {
		state, err := s.c.LayerState(ctx)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		active := state.ActiveLayers()
		if len(active) == 0 {
			fmt.Fprintln(out, "No active layers.")
			return
		}
		strs := make([]string, len(active))
		for i, n := range active {
			strs[i] = strconv.Itoa(n)
		}
		fmt.Fprintf(out, "Active layers: %s\n", strings.Join(strs, ", "))
		return
	}

	var state wire.LayerState
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 || n >= 128 {
			fmt.Fprintf(out, "Invalid layer: %s\n", a)
			return
		}
		state.SetActive(n, true)
	}
	if err := s.c.SetLayerState(ctx, state); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK")
}

func (s *Shell) cmdFragments(ctx context.Context) {
	out := s.rl.Stdout()

	doc, err := s.c.Definition(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if !doc.HasFragments() {
		fmt.Fprintln(out, "Keyboard has no fragments.")
		return
	}

	resolved, err := s.c.ResolveFragments(ctx, nil)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	hardware, err := s.c.Fragments().Hardware(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	stored, err := s.c.Fragments().Selections(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	for i, inst := range doc.Composition.Instances {
		hw, sel := "-", "-"
		if i < len(hardware) && hardware[i] != fragment.None {
			hw = strconv.Itoa(int(hardware[i]))
		}
		if i < len(stored) && stored[i] != fragment.None {
			sel = strconv.Itoa(int(stored[i]))
		}
		opt := resolved[inst.ID]
		name := ""
		if opt < len(inst.FragmentOptions) {
			name = inst.FragmentOptions[opt].Fragment
		}
		fmt.Fprintf(out, "  %d: %-16s hardware=%s stored=%s -> option %d (%s)\n",
			i, inst.ID, hw, sel, opt, name)
	}
}

func (s *Shell) cmdSelect(ctx context.Context, args []string) {
	out := s.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: select <position> <option>")
		return
	}

	doc, err := s.c.Definition(ctx)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	pos, err1 := strconv.Atoi(args[0])
	opt, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(out, "Usage: select <position> <option>")
		return
	}

	count := len(doc.Composition.Instances)
	if err := s.c.Fragments().Select(ctx, count, pos, uint8(opt)); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(out, "OK (takes effect after reboot)")
}

func (s *Shell) cmdSave(ctx context.Context) {
	if err := s.c.Save(ctx); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Saved to EEPROM.")
}

func (s *Shell) cmdReset(ctx context.Context) {
	if err := s.c.Reset(ctx); err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.rl.Stdout(), "Dynamic features reset to defaults.")
}

func (s *Shell) cmdLayout(ctx context.Context, args []string) {
	out := s.rl.Stdout()
	if len(args) != 2 {
		fmt.Fprintln(out, "Usage: layout save|load <file>")
		return
	}

	store := keymap.NewStore(args[1])
	switch args[0] {
	case "save":
		l, err := keymap.Snapshot(ctx, s.c)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if err := store.Save(l); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "Saved layout to %s\n", args[1])

	case "load":
		l, err := store.Load()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if l == nil {
			fmt.Fprintf(out, "No such file: %s\n", args[1])
			return
		}
		if err := keymap.Restore(ctx, s.c, l); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		fmt.Fprintln(out, "Layout restored. Use 'save' to persist it to EEPROM.")

	default:
		fmt.Fprintln(out, "Usage: layout save|load <file>")
	}
}

// parseUints parses args as unsigned integers of the given bit size,
// accepting decimal and 0x-prefixed hex.
func parseUints(args []string, bits int) ([]uint64, error) {
	out := make([]uint64, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 0, bits)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = v
	}
	return out, nil
}
