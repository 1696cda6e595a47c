package agent

import (
	"sort"

	"github.com/chzyer/readline"
)

// createCompleter completes command names, aliases and, for commands that
// take a call, the indexes of tracked calls.
func (r *REPL) createCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	names := r.registry.AllCompletions()
	sort.Strings(names)
	for _, name := range names {
		cmd, _ := r.registry.Get(name)
		items = append(items, readline.PcItem(name,
			readline.PcItemDynamic(func(line string) []string {
				return cmd.Completions(line)
			}),
		))
	}
	return readline.NewPrefixCompleter(items...)
}

// filterInput blocks Ctrl+Z, which would suspend the terminal.
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}
