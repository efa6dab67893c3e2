package worksheet

import "strings"

// Directives are the leading %-lines of a cell.
//
//	%auto          evaluate the cell whenever the interpreter (re)starts
//	%time          append the wall time taken to the output
//	%asap          jump the evaluation queue
//	%hide          hide the input in the rendered worksheet
//	%default_mode  set the system used by cells without a %system line
//	%<system>      evaluate the cell with <system> instead of the default
type Directives struct {
	System      string
	DefaultMode string
	Auto        bool
	Time        bool
	Asap        bool
	Hide        bool
}

// ParseDirectives splits input into its leading directives and the code that
// follows. Only the first system directive counts.
func ParseDirectives(input string) (Directives, string) {
	var d Directives
	rest := input
	for rest != "" {
		line, tail, _ := strings.Cut(rest, "\n")
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "%") {
			break
		}
		name, arg, _ := strings.Cut(strings.TrimPrefix(trimmed, "%"), " ")
		arg = strings.TrimSpace(arg)
		switch name {
		case "auto":
			d.Auto = true
		case "time":
			d.Time = true
		case "asap":
			d.Asap = true
		case "hide", "hideall":
			d.Hide = true
		case "default_mode":
			d.DefaultMode = arg
		case "":
		default:
			if d.System == "" {
				d.System = name
			}
		}
		rest = tail
	}
	return d, rest
}
