// Command focus is a line-oriented terminal client for the focusflow
// backend. The countdown it prints is purely local; every command round-trips
// through the server and adopts the server's remaining time.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"focusflow/backend/internal/client"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	server := flag.String("server", "http://localhost:8080", "backend base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	label := flag.String("label", "", "task label for new sessions")
	minutes := flag.Int("minutes", 0, "session length in minutes (0 = server default)")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: focus -email you@example.com -password secret [-label task] [-minutes 25]")
		os.Exit(2)
	}

	api := client.NewAPI(*server)
	if err := api.Login(*email, *password); err != nil {
		log.Info().Msg("login failed, trying to register")
		if err := api.Register(*email, *password); err != nil {
			log.Fatal().Err(err).Msg("could not authenticate")
		}
	}

	expired := make(chan struct{}, 1)
	syncer := client.NewSyncer(api,
		func(remaining int) { printRemaining("focus", remaining) },
		func() {
			select {
			case expired <- struct{}{}:
			default:
			}
		},
	)
	defer syncer.Close()

	breaks := client.NewBreakRunner(
		func(remaining int) { printRemaining("break", remaining) },
		func(next client.QueuedSession) {
			fmt.Println("\nbreak over, starting queued session")
			if _, err := syncer.Start(next.Label, next.DurationMinutes); err != nil {
				log.Error().Err(err).Msg("failed to start queued session")
			}
		},
		func() { fmt.Println("\nbreak over, idle") },
	)

	// A reload cannot be told apart from a long pause, so a restored session
	// stays frozen until an explicit resume.
	if restored, err := syncer.Restore(); err != nil {
		log.Fatal().Err(err).Msg("failed to restore state")
	} else if restored != nil {
		fmt.Printf("restored %s session %q, %ds left; type r to resume\n", restored.State, restored.Label, restored.RemainingSeconds)
	} else {
		session, err := syncer.Start(*label, *minutes)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start session")
		}
		fmt.Printf("started %q for %ds\n", session.Label, session.RemainingSeconds)
	}

	go func() {
		for range expired {
			fmt.Println("\nsession finished")
			next, err := api.NextBreak()
			if err != nil {
				log.Error().Err(err).Msg("failed to fetch next break")
				continue
			}
			fmt.Printf("%s break for %ds\n", next.Kind, next.DurationSeconds)
			breaks.Run(client.Break{Kind: next.Kind, DurationSeconds: next.DurationSeconds})
		}
	}()

	fmt.Println("commands: p=pause r=resume s=stop q=quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "p":
			report(syncer.Pause())
		case "r":
			if !syncer.StateKnown() {
				if _, err := syncer.Refresh(); err != nil {
					log.Error().Err(err).Msg("refresh failed")
					continue
				}
			}
			report(syncer.Resume())
		case "s":
			report(syncer.Stop())
		case "q":
			breaks.Skip()
			return
		}
	}
}

func report(session *client.Session, err error) {
	if err != nil {
		log.Error().Err(err).Msg("command failed")
		return
	}
	fmt.Printf("%s: %ds left\n", session.State, session.RemainingSeconds)
}

func printRemaining(kind string, remaining int) {
	fmt.Printf("\r[%s] %02d:%02d ", kind, remaining/60, remaining%60)
}
