// Package tui implements the full-screen setup wizard behind 'aptl-cfg wizard'.
//
// The wizard has two screens built on Bubble Tea:
//   - Discovery browses mDNS for APTL devices, or takes an address typed by
//     hand (the setup portal answers at 192.168.4.1).
//   - Dashboard polls GET /api/status every RefreshInterval and shows the
//     device, actuator, line and link state. Pressing w lists the networks
//     the device can see and sends new credentials to /save after a
//     confirmation.
//
// Every screen renders through RenderApplicationContainer so the header and
// key help stay in place.
//
// # Usage Example
//
//	if err := tui.Run(tui.Options{}); err != nil {
//	    log.Fatal(err)
//	}
package tui
