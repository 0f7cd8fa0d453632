package main

import (
	"log"
	"os"
	"os/signal"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/presenters"
	"github.com/urfave/cli/v2"
)

var nodeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "host",
		Usage: "Host of the node to talk to",
		Value: "localhost",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "Port of the node to talk to",
		Value: 2333,
	},
	&cli.StringFlag{
		Name:  "password",
		Usage: "Password of the node to talk to",
		Value: "youshallnotpass",
	},
	&cli.BoolFlag{
		Name:  "secure",
		Usage: "Use TLS when talking to the node",
	},
}

func nodeFromFlags(c *cli.Context, handlers node.Handlers) *node.Node {
	return node.New(node.Options{
		Name:     "cli",
		Host:     c.String("host"),
		Port:     c.Int("port"),
		Password: c.String("password"),
		Secure:   c.Bool("secure"),
	}, handlers)
}

func main() {
	app := &cli.App{
		Name:        "encore-cli",
		Description: "A development CLI tool for poking at audio nodes without Discord",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Load tracks for an identifier, like a URL or ytsearch:term",
				ArgsUsage: "<identifier>",
				Flags:     nodeFlags,
				Action: func(c *cli.Context) error {
					identifier := c.Args().First()
					if identifier == "" {
						return cli.Exit("Please provide an identifier to load", 1)
					}

					n := nodeFromFlags(c, node.Handlers{})
					result, err := n.LoadTracks(c.Context, identifier)
					if err != nil {
						return cli.Exit("Failed to load tracks: "+err.Error(), 1)
					}

					log.Printf("Load type: %s", result.LoadType)
					if result.PlaylistInfo.Name != "" {
						log.Printf("Playlist: %s", result.PlaylistInfo.Name)
					}
					if result.Exception != nil {
						log.Printf("Exception: %s", result.Exception.Message)
					}
					for i, tr := range result.Tracks {
						log.Printf("%2d. %s by %s [%s]", i+1, tr.Info.Title, tr.Info.Author, presenters.FormatDuration(tr.Info.Length))
					}
					return nil
				},
			},
			{
				Name:      "decode",
				Usage:     "Decode an encoded track blob into its metadata",
				ArgsUsage: "<encoded>",
				Flags:     nodeFlags,
				Action: func(c *cli.Context) error {
					encoded := c.Args().First()
					if encoded == "" {
						return cli.Exit("Please provide an encoded track", 1)
					}

					n := nodeFromFlags(c, node.Handlers{})
					tr, err := n.DecodeTrack(c.Context, encoded)
					if err != nil {
						return cli.Exit("Failed to decode track: "+err.Error(), 1)
					}

					log.Printf("%+v", tr.Info)
					return nil
				},
			},
			{
				Name:  "listen",
				Usage: "Connect to a node and print everything it sends until interrupted",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "user-id",
						Usage: "Bot user id to identify as",
						Value: "0",
					},
				}, nodeFlags...),
				Action: func(c *cli.Context) error {
					n := nodeFromFlags(c, node.Handlers{
						OnOpen: func() {
							log.Println("Socket open")
						},
						OnClose: func(code int, reason string) {
							log.Printf("Socket closed: %d %s", code, reason)
						},
						OnReconnect: func(attempt int) {
							log.Printf("Reconnecting, attempt %d", attempt)
						},
						OnError: func(err error) {
							log.Printf("Socket error: %v", err)
						},
						OnRaw: func(payload []byte) {
							log.Printf("<- %s", payload)
						},
					})

					identity := node.Identity{
						UserID:     c.String("user-id"),
						ClientName: "encore-cli",
						Shards:     1,
					}
					if err := n.Connect(c.Context, identity); err != nil {
						return cli.Exit("Failed to connect: "+err.Error(), 1)
					}
					defer func() {
						if err := n.Disconnect(); err != nil {
							log.Printf("Failed to disconnect: %v", err)
						}
					}()

					stop := make(chan os.Signal, 1)
					signal.Notify(stop, os.Interrupt)
					<-stop
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
