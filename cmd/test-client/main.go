// Command test-client drives rounds against a running silhouette server.
package main

import "github.com/mundrapranay/silhouette-db/cmd/test-client/internal/cmd"

func main() {
	cmd.Execute()
}
