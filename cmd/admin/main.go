// Command admin provides operator utilities for the idea board: role
// management, vote reconciliation, CSV export and purges.
package main

func main() {
	Execute()
}
