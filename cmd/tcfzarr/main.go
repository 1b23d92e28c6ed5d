// Command tcfzarr inspects TCF containers and serves or exports them as
// Zarr v2 hierarchies.
package main

func main() {
	Execute()
}
