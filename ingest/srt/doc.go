// Package srt carries SCTE-35 cue feeds over SRT (Secure Reliable
// Transport), both in listener mode (Server) for publishers that push
// cues and in caller mode (Caller) for pulling cues from remote sources.
package srt
