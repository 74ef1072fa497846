// Package server implements the device's local HTTP server.
//
// The server is built on gin and serves:
//
//	GET /                Wi-Fi provisioning page (nearby networks + password)
//	GET /save            persist ?ssid=&pass= and restart the device
//	GET /api/status      JSON device snapshot (CORS enabled)
//	GET /api/networks    JSON scan result (CORS enabled)
//	GET /metrics         Prometheus metrics
//	GET /ws/telemetry    websocket stream of telemetry records
//
// While the setup access point is active the server runs in portal mode:
// any unknown path is redirected to the provisioning page so phones and
// laptops open it as a captive portal.
//
// # Telemetry stream
//
// Every record the device publishes to the broker is also broadcast to
// websocket clients as a text message with the same JSON body:
//
//	{"posisi":12.50,"statusaptl":0}
//
// Slow clients are dropped rather than allowed to stall the device loop.
//
// # Usage Example
//
//	srv := server.New(server.Config{Listen: ":80"}, server.Deps{
//	    Status:      runner.Snapshot,
//	    Credentials: store,
//	    Scanner:     wifi,
//	    Restart:     cancel,
//	})
//	go srv.Start(ctx)
//	srv.Hub().Broadcast(payload)
package server
