package ffmpeg

// Output is one Icecast destination of an encoder invocation.
type Output struct {
	// URL is the full icecast output URL including credentials.
	URL string

	// Name is the stream display name sent as ice-name metadata.
	Name string
}

// Params describes one encoder invocation: a single looped audio input fanned
// out to one or more Icecast outputs at a shared bitrate.
type Params struct {
	// Source is the resolved local input path. A ".ffconcat" extension marks
	// a playlist produced by directory expansion.
	Source string

	// Bitrate is the MP3 output bitrate shared by all outputs, e.g. "128k".
	Bitrate string

	// Outputs lists every destination, in endpoint order.
	Outputs []Output
}
