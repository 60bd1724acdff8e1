// Package demux splits one subtitle stream of a media file into raw packet
// files using ffmpeg, and lists those files with their presentation
// timestamps.
package demux
