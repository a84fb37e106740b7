/*
Command-line tool for keeping a single stream of data encrypted under a passphrase-protected key.

Usage:

	$ streamvault [<flags>] <subcommand> [<args> ...]

Use 'streamvault help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kopia/streamvault/cli"
	"github.com/kopia/streamvault/internal/logfile"
)

func main() {
	app := cli.NewApp()
	kp := kingpin.New("streamvault", "StreamVault - passphrase-protected encrypted data streams")

	logfile.Attach(app, kp)
	app.Attach(kp)

	kingpin.MustParse(kp.Parse(os.Args[1:]))
}
