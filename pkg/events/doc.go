// Package events is the in-process lifecycle event bus.
//
// Handlers are registered explicitly, either one at a time with Subscribe
// or as a Registration list returned by a script component. Notify is
// synchronous: the server raises Started only after every handler for
// ScriptsLoaded has returned.
package events
