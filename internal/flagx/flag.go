// Package flagx lets several components parse their own subset of os.Args
// with independent flag sets.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// canonical strips leading dashes so "-c" and "--c" name the same flag,
// the same way the standard flag package treats them.
func canonical(arg string) string {
	return strings.TrimLeft(arg, "-")
}

// FilterArgs returns the subset of args that belongs to allowedFlags, keeping
// the values that follow them.
//
// Supported forms:
//
//	-c conf.json
//	--c conf.json
//	-c=conf.json
//	--config=conf.json
//
// boolFlags never consume the following argument, so "-x true" keeps only
// "-x"; use "-x=false" to turn a boolean flag off.
func FilterArgs(args []string, allowedFlags []string, boolFlags ...string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[canonical(f)] = struct{}{}
	}
	isBool := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		isBool[canonical(f)] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		if name, _, found := strings.Cut(arg, "="); found {
			if _, ok := allowed[canonical(name)]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		name := canonical(arg)
		if _, ok := allowed[name]; !ok {
			continue
		}
		filtered = append(filtered, arg)

		if _, ok := isBool[name]; ok {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigFilePath returns the JSON config path given with -c or -config, or
// an empty string when neither is present. Other arguments are ignored.
func ConfigFilePath() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return path
}
