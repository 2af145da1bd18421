// Package scripts holds the script-facing hooks of the server: the Loader
// that compiles script sources at boot, the server rules selected by server
// type, script components and a Watcher that reports source changes on the
// event bus.
package scripts
