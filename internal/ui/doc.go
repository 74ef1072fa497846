// Package ui provides terminal output components for the aptl-cfg CLI.
//
// Components follow a "run once and exit" pattern: they render styled
// output with lipgloss and need no event loop.
//
//   - Header: command banner showing operation name and parameters
//   - Steps: step list printed as each step settles
//   - Result: success, failure or warning boxes with details and
//     troubleshooting tips
//   - Confirm, ReadLine, ReadPassword: prompts, the latter without echo
//
// Example:
//
//	fmt.Println(ui.NewHeader("Wi-Fi provisioning", "aptl-cfg wifi",
//	    ui.Param{Key: "Device", Value: addr}).Render())
//
//	steps := ui.NewSteps(os.Stdout, "Validate credentials", "Send to device")
//	if err := steps.Run(0, validate); err != nil {
//	    steps.Skip()
//	}
package ui
