// Command dvcs-serve runs the concurrent multi-repository server of
// spec.md §4.12: it accepts connections on a configured TCP address and
// reads administrative commands from standard input, where "quit"
// drains every live connection before exiting. Grounded on
// Nivl-git-go's cmd/git-go/main.go for its flag wiring, adapted to a
// long-running server rather than a one-shot CLI invocation.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dvcs-go/dvcs/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func main() {
	listen := flag.String("listen", ":9418", "TCP address to accept connections on")
	reposRoot := flag.String("repos", ".", "base directory under which served repositories live")
	flag.Parse()

	log := logrus.StandardLogger()
	srv := server.New(server.Config{
		Listen:    *listen,
		ReposRoot: *reposRoot,
		Fs:        afero.NewOsFs(),
		Logger:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	go runAdminConsole(srv, log)

	if err := <-errCh; err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runAdminConsole reads commands from stdin until "quit", at which
// point it shuts the server down (spec.md §4.12).
func runAdminConsole(srv *server.Server, log *logrus.Logger) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		switch strings.TrimSpace(sc.Text()) {
		case "quit":
			log.Info("shutting down")
			srv.Shutdown()
			return
		case "":
			continue
		default:
			log.Warnf("unknown admin command %q", sc.Text())
		}
	}
}
