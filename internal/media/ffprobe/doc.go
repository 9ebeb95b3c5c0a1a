// Package ffprobe shells out to ffprobe and decodes its JSON inspection
// output. It is the duration probe and subtitle track discovery surface for
// the rest of the pipeline.
package ffprobe
