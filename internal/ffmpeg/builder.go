package ffmpeg

import "strings"

// PlaylistExt marks resolver-generated concat playlists; inputs with this
// extension are fed through the concat demuxer.
const PlaylistExt = ".ffconcat"

// Base returns the ffmpeg command with standard flags. The level+info
// loglevel prefixes every output line with its level for ParseLogLevel.
func Base() string {
	return "ffmpeg -hide_banner -loglevel level+info"
}

// BuildCommand builds the ffmpeg command for one group: read the source at
// native rate, loop it forever, and encode once per output. Each output gets
// its own -map and encoding args because ffmpeg applies output options
// per-destination, but the decoded input is shared.
func BuildCommand(p *Params) string {
	var cmd strings.Builder

	cmd.WriteString(Base())
	cmd.WriteString(" -re -stream_loop -1")

	if strings.HasSuffix(p.Source, PlaylistExt) {
		cmd.WriteString(" -f concat -safe 0")
	}
	cmd.WriteString(" -i " + quote(p.Source))

	for _, out := range p.Outputs {
		cmd.WriteString(" -map 0:a:0")
		cmd.WriteString(" -acodec libmp3lame")
		cmd.WriteString(" -ab " + p.Bitrate)
		cmd.WriteString(" -ar 44100 -ac 2")
		cmd.WriteString(" -f mp3")
		cmd.WriteString(" -content_type audio/mpeg")
		cmd.WriteString(" -ice_name " + quote(out.Name))
		cmd.WriteString(" " + quote(out.URL))
	}

	return cmd.String()
}

// quote wraps an argument in double quotes when it contains whitespace or
// quote characters, escaping so the command splitter recovers the argument
// verbatim.
func quote(arg string) string {
	if !strings.ContainsAny(arg, " \t\"'") {
		return arg
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(arg)
	return `"` + escaped + `"`
}
