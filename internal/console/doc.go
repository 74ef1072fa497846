// Package console implements a line based command console for bench
// bring-up of the actuator.
//
// Each command is a letter followed by an optional argument, several may
// share one line:
//
//	C          calibrate
//	M40        move to 40 mm, M+5 / M-5 move relative
//	B2         press servo 2 at the current position
//	K11        press the submit key
//	L3         save the current position as line 3
//	S60        set speed to 60 mm/s
//	D          disable the driver
//	P          print status
//
// Replies are CRLF terminated so they render on a serial terminal. The
// console reads from stdin or from a serial port opened with OpenSerial.
package console
