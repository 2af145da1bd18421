// Package server provides the game server lifecycle orchestrator.
//
// A GameServer is an explicit instance owned by the process entry point. It
// boots the realm in a fixed order and tears it down in reverse:
//
//  1. CheckDatabaseVersion: apply pending schema converters
//  2. InitSocket: bind the TCP front door
//  3. AllocatePacketBuffers: size the pool from server.max_clients
//  4. StartUDP: bind the inbound and outbound datagram sockets
//  5. CompileScripts, InitDatabase, StartScriptComponents
//  6. each dependent Subsystem
//  7. StartPersistence: arm the periodic world save
//  8. NotifyStarted: raise ScriptsLoaded then Started
//  9. OpenListener: start accepting TCP connections
//
// Every step is logged with its outcome and duration, counted in the step
// metrics and traced as a child span of server.start. The first failing step
// unwinds the server and Start returns a *StartupError.
//
// # Basic Usage
//
//	srv := server.New(cfg, server.Dependencies{
//	    Store:      store,
//	    Converters: storage.Converters(store),
//	    Metrics:    collector,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
// # Shutdown
//
// Stop closes the status first so no packet is routed and no connection is
// accepted while the rest of the server unwinds. Lifecycle listeners are
// notified before storage is flushed, so they can still write through the
// store. Stop is safe to call repeatedly, from any goroutine and from inside
// lifecycle handlers or subsystem Init.
package server
