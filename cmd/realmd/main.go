// realmd is the game server process of an Emberhold realm.
//
// It boots the realm in a fixed order (schema migration, sockets, packet
// buffers, scripts, game store, subsystems, periodic saves), serves clients
// over TCP and UDP, and unwinds everything in reverse on SIGINT or SIGTERM.
//
// Usage:
//
//	# Start the realm with config.yaml from the working directory
//	realmd run
//
//	# Start with a custom configuration and env file
//	realmd run --config /etc/realmd/config.yaml --env-file /etc/realmd/realmd.env
//
//	# Show pending schema converters without applying them
//	realmd migrate --dry-run
//
//	# Show version information
//	realmd version --output json
package main

func main() {
	Execute()
}
