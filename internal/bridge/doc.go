// Package bridge connects the ThingsBoard shared attribute channel to the
// motor core.
//
// Incoming attribute documents are queued by the transport and applied to a
// cache on the dispatch goroutine. ProcessCommands then compares the cache
// with the values seen on the previous pass:
//
//   - up, down, press1-3 and setmax act on a 0 to non-zero edge only
//   - row1-4 save the current position on any change, including back to 0
//   - newssid/newpass re-provision Wi-Fi when the SSID is new and differs
//     from the configured one
//   - kodetoken presses one key per digit when the token changes, then
//     returns the carriage home
//
// Each command publishes its status code before running and status 0 after.
package bridge
