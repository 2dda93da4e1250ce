package cmd

import "strings"

// singleDashFlags are long flags accepted with one leading dash, as in
// "launcher -np 4 -hostfile hosts ./app".
var singleDashFlags = []string{"np", "hostfile"}

func normalizeArgs(args []string) []string {
	normalized := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(normalized, args[i:]...)
		}
		normalized = append(normalized, normalizeArg(arg))
	}
	return normalized
}

func normalizeArg(arg string) string {
	if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
		return arg
	}

	name, value, hasValue := strings.Cut(arg[1:], "=")
	for _, flag := range singleDashFlags {
		if name != flag {
			continue
		}
		if hasValue {
			return "--" + name + "=" + value
		}
		return "--" + name
	}

	return arg
}
