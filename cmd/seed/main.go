// Command seed fills the configured database with demo data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/middleware"
	"yatube/internal/seed"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Users, "users", opts.Users, "number of users to create")
	flag.IntVar(&opts.Groups, "groups", opts.Groups, "number of groups to create")
	flag.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "posts per user")
	flag.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "max comments per post")
	flag.IntVar(&opts.FollowChance, "follow-chance", opts.FollowChance, "percent chance a user follows another")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		middleware.Logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Error("failed to connect", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := seed.Run(context.Background(), db, opts); err != nil {
		middleware.Logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
