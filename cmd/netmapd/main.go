// Command netmapd runs the network map service.
package main

import (
	"github.com/oasisprotocol/netmapd/cmd/netmapd/internal"
)

func main() {
	common.Execute()
}
