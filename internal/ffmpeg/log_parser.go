package ffmpeg

import "strings"

// ParseLogLevel splits one line of encoder output into its severity and
// message. With "-loglevel level+info" (see Base) every line carries a
// leading "[level]" tag, optionally preceded by a component tag such as
// "[mp3 @ 0x...]". The level tag is stripped, the component tag stays in the
// message. Untagged lines (progress output, mostly) come back as info.
func ParseLogLevel(line string) (level, msg string) {
	rest := line
	prefix := ""
	// At most two tags lead a line: an optional component, then the level.
	for i := 0; i < 2; i++ {
		if len(rest) == 0 || rest[0] != '[' {
			break
		}
		tag, tail, ok := strings.Cut(rest[1:], "] ")
		if !ok {
			break
		}
		if isLogLevel(tag) {
			return tag, prefix + tail
		}
		prefix += "[" + tag + "] "
		rest = tail
	}
	return "info", line
}

func isLogLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
