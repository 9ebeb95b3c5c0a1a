// Command slidecast converts videos into subtitle-driven slideshow videos:
// one still frame per dialogue or silence segment, re-muxed with the
// original audio and subtitles.
package main
