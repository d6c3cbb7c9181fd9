package cli

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

func newTopicCommand() *Command {
	cmd := &Command{
		Name:        "topic",
		Description: "Fetch the rendered topic fragment for an entity",
		Flags:       flag.NewFlagSet("topic", flag.ContinueOnError),
	}

	server := cmd.Flags.String("server", defaultServer, "conceptdoc server URL")
	id := cmd.Flags.Int64("id", 0, "Entity id")
	timeout := cmd.Flags.Duration("timeout", 30*time.Second, "Request timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}
		if !isSet(cmd.Flags, "id") {
			return fmt.Errorf("id is required")
		}

		query := url.Values{"entity_id": {strconv.FormatInt(*id, 10)}}
		body, err := newClient(*server, *timeout).get(context.Background(), "/get_topic", query)
		if err != nil {
			return err
		}
		_, err = stdout.Write(body)
		return err
	}
	return cmd
}

func newPageCommand() *Command {
	cmd := &Command{
		Name:        "page",
		Description: "Fetch the standalone HTML page for an entity",
		Flags:       flag.NewFlagSet("page", flag.ContinueOnError),
	}

	server := cmd.Flags.String("server", defaultServer, "conceptdoc server URL")
	id := cmd.Flags.Int64("id", 0, "Entity id")
	out := cmd.Flags.String("out", "", "Write the page to this file instead of stdout")
	timeout := cmd.Flags.Duration("timeout", 30*time.Second, "Request timeout")

	cmd.Run = func(args []string) error {
		if err := cmd.parse(args); err != nil {
			return err
		}
		if !isSet(cmd.Flags, "id") {
			return fmt.Errorf("id is required")
		}

		query := url.Values{"id": {strconv.FormatInt(*id, 10)}}
		body, err := newClient(*server, *timeout).get(context.Background(), "/get", query)
		if err != nil {
			return err
		}

		if *out == "" {
			_, err = stdout.Write(body)
			return err
		}
		if err := os.WriteFile(*out, body, 0644); err != nil {
			return fmt.Errorf("failed to write page: %w", err)
		}
		fmt.Fprintf(stdout, "Wrote %s (%d bytes)\n", *out, len(body))
		return nil
	}
	return cmd
}

// isSet reports whether name was given on the command line
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
