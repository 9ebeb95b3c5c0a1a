// Package ffmpeg implements the Transcoder boundary on top of the ffmpeg and
// ffprobe command-line tools. The core never builds command lines itself; it
// calls through the typed interface here so tests can inject a fake.
package ffmpeg
