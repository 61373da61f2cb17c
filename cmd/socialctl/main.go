package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/social/internal/app"
	"github.com/anonto42/nano-midea/social/internal/events"
	"github.com/anonto42/nano-midea/social/internal/services"
	"github.com/anonto42/nano-midea/social/pkg/config"
	"github.com/anonto42/nano-midea/social/pkg/logger"
	"github.com/golang-jwt/jwt/v4"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "socialctl",
		Usage: "Operator tooling for the social service",
		Commands: []*cli.Command{
			migrateCommand(),
			repairCommand(),
			emitCommand(),
			tokenCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cfg.Logging), nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply the relational schema and create the post indexes",
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, lg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			db, _, err := app.Open(ctx, cfg, lg)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func repairCommand() *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "Recompute denormalized counters",
		Commands: []*cli.Command{
			{
				Name:  "counts",
				Usage: "Recompute comment and reaction counts for one post or all posts",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "post", Usage: "repair a single post id"},
					&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, lg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := cfg.ValidateStorage(); err != nil {
						return err
					}
					db, application, err := app.Open(ctx, cfg, lg)
					if err != nil {
						return err
					}
					defer db.Close()

					var out any
					if id := c.String("post"); id != "" {
						out, err = application.Repairer.RepairPost(ctx, id)
					} else {
						out, err = application.Repairer.RepairAll(ctx)
					}
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRepair(out)
					return nil
				},
			},
		},
	}
}

func emitCommand() *cli.Command {
	return &cli.Command{
		Name:  "emit",
		Usage: "Publish lifecycle events onto the streams the service consumes",
		Commands: []*cli.Command{
			{
				Name:  "identity",
				Usage: "Publish an identity lifecycle event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "external-id", Required: true},
					&cli.StringFlag{Name: "profile-id"},
					&cli.StringFlag{Name: "kind", Value: string(events.IdentityCreated), Usage: "CREATED, UPDATED or DELETED"},
					&cli.StringFlag{Name: "display-name"},
					&cli.StringFlag{Name: "avatar"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withPublisher(func(p *events.Publisher) (string, error) {
						return p.PublishIdentity(ctx, events.IdentityLifecycle{
							ExternalID:  c.String("external-id"),
							ProfileID:   c.String("profile-id"),
							DisplayName: c.String("display-name"),
							AvatarRef:   c.String("avatar"),
							Kind:        events.IdentityKind(strings.ToUpper(c.String("kind"))),
						})
					})
				},
			},
			{
				Name:  "friendship",
				Usage: "Publish a friendship lifecycle event",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "a", Required: true, Usage: "first profile id"},
					&cli.StringFlag{Name: "b", Required: true, Usage: "second profile id"},
					&cli.StringFlag{Name: "kind", Value: string(events.FriendshipFriend), Usage: "FRIEND or UNFRIEND"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withPublisher(func(p *events.Publisher) (string, error) {
						return p.PublishFriendship(ctx, events.FriendshipLifecycle{
							ProfileIDA: c.String("a"),
							ProfileIDB: c.String("b"),
							Kind:       events.FriendshipKind(strings.ToUpper(c.String("kind"))),
						})
					})
				},
			},
		},
	}
}

func withPublisher(publish func(*events.Publisher) (string, error)) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts, err := redis.ParseURL(cfg.Events.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	id, err := publish(events.NewPublisher(client, cfg.Events.IdentityStream, cfg.Events.FriendshipStream))
	if err != nil {
		return err
	}
	fmt.Printf("published %s\n", id)
	return nil
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Mint a development bearer token signed with JWT_SECRET",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Required: true, Usage: "external identity to embed"},
			&cli.DurationFlag{Name: "ttl", Value: time.Hour},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			now := time.Now()
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   c.String("subject"),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(c.Duration("ttl"))),
			}).SignedString([]byte(cfg.JWTSecret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRepair(v any) {
	switch r := v.(type) {
	case *services.RepairResult:
		fmt.Printf("post %s comments %d -> %d reactions %d -> %d changed=%t\n",
			r.PostID, r.OldCommentCount, r.CommentCount, r.OldReactionCount, r.ReactionCount, r.Changed)
	case *services.RepairSummary:
		fmt.Printf("scanned %d fixed %d failed %d in %s\n", r.Scanned, r.Fixed, r.Failed, r.Duration)
	}
}
