// Package network manages the device's Wi-Fi link through NetworkManager.
//
// Manager wraps nmcli for station connects, scans and the open setup access
// point. Supervisor layers the reconnect policy on top: one attempt every
// five seconds while the link is down, and a switch to the access point
// after five consecutive failures.
package network
