// Package display implements the sentinel protocol that lets a bash cell ask
// its host to render image files.
//
// A cell is prefixed with SetupScript, which overrides the "display" command
// so that `display plot.png` prints a line of the form
//
//	__bash_with_display__ plot.png
//
// on standard output. Extract later pulls those lines back out of the
// captured output. Any output line that happens to start with Prefix is
// treated as a directive, even if the script printed it for another reason.
package display

import "strings"

// Prefix marks a line of standard output as a display directive.
const Prefix = "__bash_with_display__"

// SetupScript is prepended to every cell. It shadows any "display" binary
// on PATH.
const SetupScript = `
display () {
    echo "` + Prefix + ` $1"
}
`

// Prepare builds the interpreter input for a cell: the setup script, the
// cell itself and a trailing newline. Invalid UTF-8 is replaced rather than
// rejected.
func Prepare(cell string) []byte {
	script := SetupScript + "\n" + cell
	if !strings.HasSuffix(script, "\n") {
		script += "\n"
	}
	return []byte(strings.ToValidUTF8(script, "\uFFFD"))
}

// Extract splits captured standard output into the file paths requested by
// display directives, in order, and the remaining output with directive
// lines removed. It performs no I/O.
func Extract(out string) (paths []string, rest string) {
	var kept []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, Prefix) {
			kept = append(kept, line)
			continue
		}
		// The first field is the token itself.
		fields := strings.Split(strings.TrimSpace(line), " ")
		paths = append(paths, fields[1:]...)
	}
	return paths, strings.Join(kept, "\n")
}
