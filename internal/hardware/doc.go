// Package hardware provides the physical backends for the motor core.
//
// The gpio backend drives the stepper and reads the limit switch through the
// Linux GPIO character device (go-gpiocdev) and drives the servos with PWM
// through periph. The sim backend replaces both with an in-memory carriage
// for bench work without a rig.
package hardware
